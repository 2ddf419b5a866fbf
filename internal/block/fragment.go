package block

import "encoding/json"

// Resource is one CSS or JS dependency of a fragment, either a URL or inline text.
type Resource struct {
	Kind      string `json:"kind"`
	Data      string `json:"data"`
	Mimetype  string `json:"mimetype"`
	Placement string `json:"placement"`
}

const (
	mimeCSS = "text/css"
	mimeJS  = "application/javascript"
)

// Fragment is a rendered view plus what the page needs to run it.
type Fragment struct {
	Content   string
	Resources []Resource
	JSInitFn  string
}

func (f *Fragment) AddContent(html string) { f.Content += html }

func (f *Fragment) AddCSSURL(u string) { f.add("url", u, mimeCSS, "head") }
func (f *Fragment) AddJSURL(u string)  { f.add("url", u, mimeJS, "foot") }
func (f *Fragment) AddCSS(text string) { f.add("text", text, mimeCSS, "head") }
func (f *Fragment) AddJS(text string)  { f.add("text", text, mimeJS, "foot") }

// InitializeJS names the client-side function called with the block's DOM element.
func (f *Fragment) InitializeJS(fn string) { f.JSInitFn = fn }

func (f *Fragment) add(kind, data, mime, placement string) {
	f.Resources = append(f.Resources, Resource{Kind: kind, Data: data, Mimetype: mime, Placement: placement})
}

func (f *Fragment) MarshalJSON() ([]byte, error) {
	res := f.Resources
	if res == nil {
		res = []Resource{}
	}
	return json.Marshal(struct {
		Content   string     `json:"content"`
		Resources []Resource `json:"resources"`
		JSInitFn  string     `json:"js_init_fn,omitempty"`
		JSVersion int        `json:"js_init_version"`
	}{f.Content, res, f.JSInitFn, 1})
}
