// Package postprocess tidies raw model output before it is used: reasoning
// blocks and preambles are stripped from translations, and term-detection
// replies are split into individual terms.
package postprocess

import (
	"regexp"
	"strings"
	"unicode"
)

// reasoningRe matches closed reasoning blocks. RE2 has no backreferences, so
// every tag pair is spelled out.
var reasoningRe = regexp.MustCompile(
	`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>`,
)

// openReasoningRe matches a reasoning block whose closing tag never arrived.
var openReasoningRe = regexp.MustCompile(`(?is)(?:<think>|<thinking>|<reasoning>).*$`)

// preambleRe matches a leading "Translation:" style label, optionally
// introduced by "Here is" / "Sure," and qualified by a language name.
var preambleRe = regexp.MustCompile(
	`(?i)^(?:(?:sure|certainly|of course)[,.!]?\s+)?(?:here(?:'s| is)\s+)?(?:the\s+)?(?:english\s+|final\s+)?(?:translation|translated text|译文|翻译)\s*[:：]\s*`,
)

// Clean strips reasoning blocks, a leading translation label and a single
// pair of wrapping quotes, then trims the result.
func Clean(text string) string {
	text = reasoningRe.ReplaceAllString(text, "")
	text = openReasoningRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if loc := preambleRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	}
	return strings.TrimSpace(unquote(text))
}

var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'«':  '»',
	'“':  '”',
	'‘':  '’',
	'「':  '」',
	'『':  '』',
}

func unquote(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	if closer, ok := quotePairs[runes[0]]; ok && runes[n-1] == closer {
		inner := string(runes[1 : n-1])
		// Leave "a" and "b" alone: the outer quotes belong to two phrases.
		if strings.ContainsRune(inner, runes[0]) || strings.ContainsRune(inner, closer) {
			return text
		}
		return inner
	}
	return text
}

// listMarkerRe matches bullets and numbering at the start of a term.
var listMarkerRe = regexp.MustCompile(`^(?:[-*•·]+|\d+[.)、])\s*`)

// termSeparator splits detection replies on whitespace and on both ASCII and
// CJK list punctuation.
func termSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', '，', '、', ';', '；', '|', '/':
		return true
	}
	return false
}

// SplitTerms turns a free-form term listing into distinct terms in order of
// first appearance.
func SplitTerms(raw string) []string {
	raw = Clean(raw)
	seen := make(map[string]bool)
	var terms []string
	for _, field := range strings.FieldsFunc(raw, termSeparator) {
		term := listMarkerRe.ReplaceAllString(field, "")
		term = strings.Trim(term, "\"'“”‘’「」『』《》()（）[]【】:：.。")
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}
