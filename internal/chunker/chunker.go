// Package chunker splits overlong source lines into sentence-sized queries.
// Both CJK and Western punctuation count as boundaries, so a paragraph of
// classical Chinese with no spaces still splits cleanly.
package chunker

import (
	"strings"
	"unicode"
)

// Boundaries, strongest first. A closing quote or bracket directly after a
// boundary stays with the preceding piece.
const (
	sentenceEnds = "。！？；.!?;"
	clauseEnds   = "，、：,:"
	closers      = "」』”’）)]》"
)

// Chunk splits text into pieces of at most maxRunes runes. Splits happen,
// in order of preference, after sentence-ending punctuation, after clause
// punctuation, at whitespace, and finally as a hard cut. maxRunes <= 0
// disables splitting.
func Chunk(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return []string{text}
	}

	var chunks []string
	for len(runes) > maxRunes {
		n := findSplit(runes, maxRunes)
		if piece := strings.TrimSpace(string(runes[:n])); piece != "" {
			chunks = append(chunks, piece)
		}
		runes = []rune(strings.TrimSpace(string(runes[n:])))
	}
	if piece := strings.TrimSpace(string(runes)); piece != "" {
		chunks = append(chunks, piece)
	}
	return chunks
}

// findSplit returns how many runes of r to consume, at most limit.
func findSplit(r []rune, limit int) int {
	if n := lastBoundary(r, limit, sentenceEnds); n > 0 {
		return n
	}
	if n := lastBoundary(r, limit, clauseEnds); n > 0 {
		return n
	}
	for i := limit - 1; i > 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return limit
}

// lastBoundary finds the last rune in r[:limit] that is in set and returns
// the split position after it and any closers that follow.
func lastBoundary(r []rune, limit int, set string) int {
	for i := limit - 1; i >= 0; i-- {
		if !strings.ContainsRune(set, r[i]) {
			continue
		}
		end := i + 1
		for end < limit && strings.ContainsRune(closers, r[end]) {
			end++
		}
		return end
	}
	return 0
}

// Lines expands every line with Chunk and reports, for each produced
// piece, the index of the line it came from.
func Lines(lines []string, maxRunes int) (pieces []string, origin []int) {
	for i, line := range lines {
		for _, c := range Chunk(line, maxRunes) {
			pieces = append(pieces, c)
			origin = append(origin, i)
		}
	}
	return pieces, origin
}
