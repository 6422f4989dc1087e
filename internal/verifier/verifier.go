// Package verifier checks which glossary renderings made it into a
// translation. The check is a case-insensitive substring heuristic: it does
// not understand inflection or word boundaries.
package verifier

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/valpere/glosstran/internal"
)

// Placeholder renderings that never count as used.
const emptyRendering = "-"

// Verify returns one flag per candidate, in order. A rendering such as
// "liberation/moksha" counts as used when any of its slash-separated
// variants appears in the translation.
func Verify(translation string, candidates []internal.MatchCandidate) []bool {
	flags := make([]bool, len(candidates))
	text := normalize(translation)
	if text == "" {
		return flags
	}
	for i, c := range candidates {
		flags[i] = Used(text, c.SelectedTranslation)
	}
	return flags
}

// Used reports whether rendering occurs in text. text must already be
// normalized.
func Used(text, rendering string) bool {
	r := strings.TrimSpace(rendering)
	if r == "" || r == emptyRendering {
		return false
	}
	for _, variant := range strings.Split(r, "/") {
		v := normalize(variant)
		if v == "" || v == emptyRendering {
			continue
		}
		if strings.Contains(text, v) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(cases.Fold().String(s))
}
