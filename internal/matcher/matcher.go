// Package matcher finds the glossary terms relevant to a query by running an
// ordered list of retrieval strategies and merging their candidates.
package matcher

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/valpere/glosstran/internal"
	"github.com/valpere/glosstran/internal/glossary"
)

// Default result sizes for the vector scan.
const (
	DefaultTopK       = 3
	DefaultDetectTopK = 2
)

// Glossary is the part of glossary.Store the strategies need.
type Glossary interface {
	AllTerms() iter.Seq[string]
	Exact(term string) ([]glossary.Entry, error)
	Nearest(ctx context.Context, vec []float32, k int) ([]glossary.Neighbor, error)
}

// Strategy produces candidates for a query. An error returned together with
// candidates is a soft warning; the candidates are still merged.
type Strategy interface {
	Name() string
	Find(ctx context.Context, query string, topK int) ([]internal.MatchCandidate, error)
}

// Result is the merged, ranked output of Match.
type Result struct {
	Candidates []internal.MatchCandidate
	Warnings   []error
}

// Matcher is safe for concurrent use once built.
type Matcher struct {
	strategies []Strategy
}

// New runs strategies in the given order; earlier strategies win when two
// report the same key term.
func New(strategies ...Strategy) *Matcher {
	return &Matcher{strategies: strategies}
}

// NewDefault wires the exact scan followed by the vector scan.
func NewDefault(g Glossary, emb Embedder) *Matcher {
	return New(NewExactStrategy(g), NewVectorStrategy(g, emb))
}

// Match never fails: strategy errors are logged and returned as warnings so
// that a broken embedding service degrades to exact-only matching.
func (m *Matcher) Match(ctx context.Context, query string, topK int) Result {
	var res Result
	if strings.TrimSpace(query) == "" {
		return res
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	seen := make(map[string]bool)
	for _, s := range m.strategies {
		found, err := s.Find(ctx, query, topK)
		if err != nil {
			slog.Warn("match strategy degraded", "strategy", s.Name(), "err", err)
			res.Warnings = append(res.Warnings, err)
		}
		for _, c := range found {
			if seen[c.KeyTerm] {
				continue
			}
			seen[c.KeyTerm] = true
			res.Candidates = append(res.Candidates, c)
		}
	}

	Rank(res.Candidates)
	return res
}

// Rank sorts candidates by ascending distance, keeping discovery order for
// equal distances.
func Rank(c []internal.MatchCandidate) {
	slices.SortStableFunc(c, func(a, b internal.MatchCandidate) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
}

func candidate(e glossary.Entry, distance float64, strategy string) internal.MatchCandidate {
	return internal.MatchCandidate{
		KeyTerm:             e.KeyTerm,
		SelectedTranslation: e.Selected,
		SourceField:         e.SourceField,
		Distance:            distance,
		Strategy:            strategy,
	}
}
