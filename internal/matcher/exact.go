package matcher

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/valpere/glosstran/internal"
)

// ExactStrategy reports every key term that occurs verbatim in the query.
// Terms are tried longest first; a shorter term is dropped when all of its
// occurrences fall inside spans already claimed by a longer accepted term,
// so 苦难 suppresses 苦 unless 苦 also appears on its own.
type ExactStrategy struct {
	g     Glossary
	terms []string
}

// NewExactStrategy snapshots the glossary's key terms, so the glossary must
// not change afterwards.
func NewExactStrategy(g Glossary) *ExactStrategy {
	terms := slices.Collect(g.AllTerms())
	slices.SortStableFunc(terms, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})
	return &ExactStrategy{g: g, terms: terms}
}

func (s *ExactStrategy) Name() string { return internal.StrategyExact }

type span struct{ start, end int }

func (s *ExactStrategy) Find(ctx context.Context, query string, _ int) ([]internal.MatchCandidate, error) {
	var (
		out     []internal.MatchCandidate
		claimed []span
		errs    []error
	)

	for _, term := range s.terms {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		occ := occurrences(query, term)
		if len(occ) == 0 {
			continue
		}
		free := false
		for _, o := range occ {
			if !covered(o, claimed) {
				free = true
				break
			}
		}
		if !free {
			continue
		}

		entries, err := s.g.Exact(term)
		if err != nil {
			errs = append(errs, err)
		}
		if len(entries) == 0 {
			continue
		}
		claimed = append(claimed, occ...)
		out = append(out, candidate(entries[0], 0, internal.StrategyExact))
	}
	return out, errors.Join(errs...)
}

// occurrences returns the byte spans of every, possibly overlapping,
// occurrence of term in s.
func occurrences(s, term string) []span {
	if term == "" {
		return nil
	}
	var out []span
	for off := 0; off < len(s); {
		i := strings.Index(s[off:], term)
		if i < 0 {
			break
		}
		start := off + i
		out = append(out, span{start, start + len(term)})
		_, size := utf8.DecodeRuneInString(s[start:])
		off = start + size
	}
	return out
}

func covered(o span, claimed []span) bool {
	for _, c := range claimed {
		if o.start >= c.start && o.end <= c.end {
			return true
		}
	}
	return false
}
