package glossary

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/antzucaro/matchr"

	"github.com/valpere/glosstran/internal/vectorindex"
	"github.com/valpere/glosstran/internal/vectorindex/flat"
)

// Neighbor is an entry returned by a vector search together with the
// index-native distance (lower is closer).
type Neighbor struct {
	Entry    Entry
	Distance float64
}

// Store is the read-only glossary. Index IDs are positions in Entries.
type Store struct {
	entries []Entry
	byTerm  map[string][]int
	order   []string
	dim      int
	degraded int
	index    vectorindex.Index
}

// NewStore validates entries and wraps them with index. A nil index is
// allowed: exact lookups keep working and Nearest reports
// ErrIndexUnavailable.
func NewStore(entries []Entry, index vectorindex.Index) (*Store, error) {
	s := &Store{
		entries: entries,
		byTerm:  make(map[string][]int, len(entries)),
		index:   index,
	}

	for i, e := range entries {
		if e.KeyTerm == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty key term", ErrConfiguration, i)
		}
		if e.Degraded {
			s.degraded++
		}
		// The first entry fixes the dimension, even when it is 0.
		switch {
		case i == 0:
			s.dim = len(e.Embedding)
		case len(e.Embedding) != s.dim:
			return nil, fmt.Errorf("%w: entry %q has %d dimensions, store has %d",
				ErrConfiguration, e.KeyTerm, len(e.Embedding), s.dim)
		}
		if _, seen := s.byTerm[e.KeyTerm]; !seen {
			s.order = append(s.order, e.KeyTerm)
		}
		s.byTerm[e.KeyTerm] = append(s.byTerm[e.KeyTerm], i)
	}

	if index != nil {
		if s.dim != 0 && index.Dimensions() != s.dim {
			return nil, fmt.Errorf("%w: index has %d dimensions, entries have %d",
				ErrConfiguration, index.Dimensions(), s.dim)
		}
		if index.Len() != len(entries) {
			return nil, fmt.Errorf("%w: index holds %d vectors for %d entries",
				ErrConfiguration, index.Len(), len(entries))
		}
	}
	return s, nil
}

// NewFlatStore builds a store backed by an in-memory flat index over the
// entries' own embeddings.
func NewFlatStore(entries []Entry) (*Store, error) {
	if len(entries) == 0 {
		return NewStore(entries, nil)
	}
	ix, err := flat.New(len(entries[0].Embedding))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	vecs := make([][]float32, len(entries))
	for i, e := range entries {
		vecs[i] = e.Embedding
	}
	if err := ix.Add(vecs...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return NewStore(entries, ix)
}

func (s *Store) Len() int { return len(s.entries) }

// Dimensions is the embedding length shared by every entry.
func (s *Store) Dimensions() int { return s.dim }

// Entries returns a copy of the entries in glossary order.
func (s *Store) Entries() []Entry { return slices.Clone(s.entries) }

// Degraded counts entries whose embedding failed at build time.
func (s *Store) Degraded() int { return s.degraded }

// HasIndex reports whether vector search is available.
func (s *Store) HasIndex() bool { return s.index != nil }

// Exact returns every entry keyed by term, or nil when there is none. More
// than one entry is returned alongside an ErrAmbiguousLookup error.
func (s *Store) Exact(term string) ([]Entry, error) {
	idx := s.byTerm[term]
	if len(idx) == 0 {
		return nil, nil
	}
	out := make([]Entry, len(idx))
	for i, j := range idx {
		out[i] = s.entries[j]
	}
	if len(out) > 1 {
		return out, fmt.Errorf("%w: %q has %d entries", ErrAmbiguousLookup, term, len(out))
	}
	return out, nil
}

// Nearest returns up to k entries closest to vec, nearest first. Degraded
// entries are never returned; the search over-fetches by their count and
// drops them.
func (s *Store) Nearest(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	if s.index == nil {
		return nil, ErrIndexUnavailable
	}
	if len(vec) != s.index.Dimensions() {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrConfiguration, len(vec), s.index.Dimensions())
	}

	if k <= 0 {
		return nil, nil
	}

	hits, err := s.index.Search(ctx, vec, min(k+s.degraded, len(s.entries)))
	if err != nil {
		if errors.Is(err, vectorindex.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	out := make([]Neighbor, 0, min(k, len(hits)))
	for _, h := range hits {
		if len(out) == k {
			break
		}
		if h.ID < 0 || h.ID >= len(s.entries) || s.entries[h.ID].Degraded {
			continue
		}
		out = append(out, Neighbor{Entry: s.entries[h.ID], Distance: h.Distance})
	}
	return out, nil
}

// AllTerms yields each distinct key term once, in glossary order. The
// sequence can be ranged over any number of times.
func (s *Store) AllTerms() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, t := range s.order {
			if !yield(t) {
				return
			}
		}
	}
}

// Suggest returns up to n key terms ranked by Jaro-Winkler similarity to
// term. Terms scoring below minScore are dropped.
func (s *Store) Suggest(term string, n int) []string {
	const minScore = 0.5
	if n <= 0 || term == "" {
		return nil
	}

	type scored struct {
		term  string
		score float64
	}
	var ranked []scored
	for _, t := range s.order {
		if sc := matchr.JaroWinkler(term, t, false); sc >= minScore {
			ranked = append(ranked, scored{t, sc})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.term
	}
	return out
}
