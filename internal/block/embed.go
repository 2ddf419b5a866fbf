package block

import (
	"embed"
	"encoding/json"
	"html/template"
)

// Templates holds the views rendered through Runtime.Render.
//
//go:embed templates/*.html
var Templates embed.FS

// Static holds the block's client code, served under Deps.StaticURL.
//
//go:embed static
var Static embed.FS

// TemplateFuncs must be installed by any Runtime rendering Templates.
var TemplateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}
