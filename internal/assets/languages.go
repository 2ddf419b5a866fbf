package assets

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageTable maps caption language codes to English display names.
type LanguageTable map[string]string

// NewLanguageTable names each configured code. Codes x/text cannot name are left out.
func NewLanguageTable(codes []string) LanguageTable {
	namer := display.English.Tags()
	t := make(LanguageTable, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		tag, err := language.Parse(c)
		if err != nil {
			continue
		}
		if name := namer.Name(tag); name != "" {
			t[c] = name
		}
	}
	return t
}

// Title returns the display name, or the raw code when it is unknown.
func (t LanguageTable) Title(code string) string {
	if name, ok := t[code]; ok {
		return name
	}
	return code
}
