// Package locale resolves localization target languages.
package locale

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Parse normalizes a user-supplied language code. The base language must
// be one the on-screen text detector can recognise, otherwise the text
// overlay stage could never find the strings it has to replace.
func Parse(code string) (language.Tag, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return language.Und, fmt.Errorf("target language is required")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, fmt.Errorf("invalid target language %q: %w", code, err)
	}
	if !Detectable(tag) {
		return language.Und, fmt.Errorf("target language %q is not supported", code)
	}
	return tag, nil
}

// Detectable reports whether whatlanggo knows the tag's base language.
func Detectable(tag language.Tag) bool {
	base, _ := tag.Base()
	iso := base.String()
	for lang := range whatlanggo.Langs {
		if lang.Iso6391() == iso || lang.Iso6393() == iso {
			return true
		}
	}
	return false
}

// Name returns the English display name, e.g. "Hindi" for hi.
func Name(tag language.Tag) string {
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// Pair renders "English → Hindi".
func Pair(source, target language.Tag) string {
	return Name(source) + " → " + Name(target)
}

// Language is a selectable target.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists every detectable language with a two-letter code, sorted
// by code.
func Languages() []Language {
	seen := make(map[string]bool)
	ret := make([]Language, 0, len(whatlanggo.Langs))
	for lang := range whatlanggo.Langs {
		code := lang.Iso6391()
		if code == "" || seen[code] {
			continue
		}
		tag, err := language.Parse(code)
		if err != nil {
			continue
		}
		seen[code] = true
		ret = append(ret, Language{Code: code, Name: Name(tag)})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Code < ret[j].Code })
	return ret
}
