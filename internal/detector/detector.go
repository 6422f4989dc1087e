// Package detector identifies the language of a text with lingua.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector restricted to the given ISO 639-1 codes. Unknown
// codes are ignored; with fewer than two usable codes every language is
// considered. Building the models is slow, so share the instance.
func New(isoCodes ...string) *Detector {
	langs := Languages(isoCodes...)

	var builder lingua.LanguageDetectorBuilder
	if len(langs) >= 2 {
		builder = lingua.NewLanguageDetectorBuilder().FromLanguages(langs...)
	} else {
		builder = lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	}
	return &Detector{detector: builder.Build()}
}

// Languages resolves ISO 639-1 codes, skipping unknown ones and duplicates.
func Languages(isoCodes ...string) []lingua.Language {
	seen := make(map[lingua.Language]bool)
	var out []lingua.Language
	for _, code := range isoCodes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(code)))
		lang := lingua.GetLanguageFromIsoCode639_1(iso)
		if lang == lingua.Unknown || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of text.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Name returns the English name of an ISO 639-1 code, e.g. "Chinese" for
// "zh", or the code itself when it is unknown.
func Name(isoCode string) string {
	langs := Languages(isoCode)
	if len(langs) == 0 {
		return isoCode
	}
	name := strings.ToLower(langs[0].String())
	return strings.ToUpper(name[:1]) + name[1:]
}
