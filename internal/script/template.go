package script

import "regexp"

// AnchorVar is the template variable holding the resolved anchor.
const AnchorVar = "anchor"

var anchorPlaceholder = regexp.MustCompile(`{{\s*anchor\s*}}`)

// Vars are the values available to a template.
type Vars map[string]string

// FillTemplate replaces every {{anchor}} token in tpl with vars["anchor"],
// verbatim. A missing anchor collapses the token to "".
func FillTemplate(tpl string, vars Vars) string {
	return anchorPlaceholder.ReplaceAllLiteralString(tpl, vars[AnchorVar])
}

// ResolveAnchor returns the phrase for the user's selected key when it is in
// the vocabulary, and the step's default anchor otherwise. An unknown or
// empty selection is treated as no selection.
func ResolveAnchor(lib *Library, selectedKey string, step Step) string {
	if phrase, ok := lib.Phrase(selectedKey); ok {
		return phrase
	}
	phrase, _ := lib.DefaultAnchor(step)
	return phrase
}
