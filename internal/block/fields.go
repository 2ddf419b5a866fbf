package block

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"amsplayer/internal/assets"
)

const (
	ProtectionNone      = ""
	ProtectionAES       = "AES"
	ProtectionPlayReady = "PlayReady"
)

// Fields are the studio-editable settings of a block instance.
type Fields struct {
	DisplayName        string           `json:"display_name"`
	VideoURL           string           `json:"video_url"`
	VerificationKey    string           `json:"verification_key"`
	ProtectionType     string           `json:"protection_type"`
	TokenIssuer        string           `json:"token_issuer"`
	TokenScope         string           `json:"token_scope"`
	Captions           []assets.Caption `json:"captions"`
	TranscriptsEnabled bool             `json:"transcripts_enabled"`
	DownloadURL        *string          `json:"download_url"`
}

func DefaultFields() Fields {
	return Fields{
		DisplayName: "Azure Media Services Video Player",
		TokenIssuer: "http://openedx.microsoft.com/",
		TokenScope:  "urn:xblock-azure-media-services",
		Captions:    []assets.Caption{},
	}
}

// FieldInfo describes one field for the studio editor.
type FieldInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Help        string   `json:"help"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	Value       any      `json:"value"`
	Default     any      `json:"default"`
	IsSet       bool     `json:"is_set"`
}

type fieldMeta struct {
	name, display, help, typ string
	options                  []string
}

// editable lists the studio form in display order.
var editable = []fieldMeta{
	{"display_name", "Display Name", "Enter the name that students see for this component. Analytics reports may also use the display name to identify this component.", "string", nil},
	{"video_url", "Video Url", "Enter the URL to your published video on Azure Media Services", "string", nil},
	{"verification_key", "Verification Key", "Enter the Base64 encoded Verification Key from your Azure Management Portal", "string", nil},
	{"protection_type", "Protection Type", "This can be either blank (meaning unprotected), 'AES', or 'PlayReady'", "select", []string{ProtectionNone, ProtectionAES, ProtectionPlayReady}},
	{"token_issuer", "Token Issuer", "This value must match what is in the 'Content Protection' area of the Azure Media Services portal", "string", nil},
	{"token_scope", "Token Scope", "This value must match what is in the 'Content Protection' area of the Azure Media Services portal", "string", nil},
	{"captions", "Captions", "A list of caption definitions", "list", nil},
	{"transcripts_enabled", "Transcripts enabled", "Transcripts switch", "boolean", nil},
	{"download_url", "Video Download URL", "A download URL", "string", nil},
}

func isEditable(name string) bool {
	for _, m := range editable {
		if m.name == name {
			return true
		}
	}
	return false
}

// decodeFields overlays the explicitly set values onto the defaults.
func decodeFields(set map[string]any) (Fields, error) {
	f := DefaultFields()
	if len(set) == 0 {
		return f, nil
	}
	b, err := json.Marshal(set)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(b, &f); err != nil {
		return DefaultFields(), fmt.Errorf("decode fields: %w", err)
	}
	if f.Captions == nil {
		f.Captions = []assets.Caption{}
	}
	return f, nil
}

// asMap renders fields keyed by their JSON names.
func (f Fields) asMap() map[string]any {
	b, _ := json.Marshal(f)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

func fieldInfos(rec Record, f Fields) []FieldInfo {
	values, defaults := f.asMap(), DefaultFields().asMap()
	out := make([]FieldInfo, 0, len(editable))
	for _, m := range editable {
		_, set := rec.Fields[m.name]
		out = append(out, FieldInfo{
			Name:        m.name,
			DisplayName: m.display,
			Help:        m.help,
			Type:        m.typ,
			Options:     m.options,
			Value:       values[m.name],
			Default:     defaults[m.name],
			IsSet:       set,
		})
	}
	return out
}

// validate returns user-facing messages; empty means valid.
func (f Fields) validate() []string {
	var msgs []string
	switch f.ProtectionType {
	case ProtectionNone, ProtectionAES, ProtectionPlayReady:
	default:
		msgs = append(msgs, fmt.Sprintf("Protection Type must be blank, '%s' or '%s'.", ProtectionAES, ProtectionPlayReady))
	}
	if f.ProtectionType != ProtectionNone {
		if f.VerificationKey == "" {
			msgs = append(msgs, "Verification Key is required for protected content.")
		} else if _, err := base64.StdEncoding.DecodeString(f.VerificationKey); err != nil {
			msgs = append(msgs, "Verification Key must be Base64 encoded.")
		}
	}
	return msgs
}
