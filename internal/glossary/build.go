package glossary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/valpere/glosstran/internal/embedding"
)

// BuildStats summarises where selected renderings came from.
type BuildStats struct {
	Total    int
	Failed   int
	BySource map[string]int
}

// FieldCount is one row of BuildStats.Sorted.
type FieldCount struct {
	Field string
	Count int
}

// Sorted returns the per-field counts, most frequent first.
func (s BuildStats) Sorted() []FieldCount {
	out := make([]FieldCount, 0, len(s.BySource))
	for f, n := range s.BySource {
		out = append(out, FieldCount{Field: f, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Build embeds the selected rendering of every record. A failed embedding
// does not abort the build: the entry keeps its rendering, gets a zero vector
// and is tagged FieldError.
//
// dim fixes the vector length; 0 takes it from the embedder or, failing
// that, from the first successful call. A vector of any other length is an
// ErrConfiguration.
func Build(ctx context.Context, records []Record, emb embedding.Embedder, dim int) ([]Entry, BuildStats, error) {
	stats := BuildStats{Total: len(records), BySource: make(map[string]int)}
	if dim <= 0 {
		dim = emb.Dimensions()
	}

	entries := make([]Entry, 0, len(records))
	var pending []int

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		e := NewEntry(rec)
		vec, err := emb.Embed(ctx, e.Selected)
		switch {
		case err != nil:
			slog.Warn("embedding failed, using zero vector", "term", e.KeyTerm, "err", err)
			e.SourceField = FieldError
			e.Degraded = true
			pending = append(pending, len(entries))
		case dim <= 0:
			dim = len(vec)
			e.Embedding = vec
		case len(vec) != dim:
			return nil, stats, fmt.Errorf("%w: embedding for %q has %d dimensions, want %d",
				ErrConfiguration, e.KeyTerm, len(vec), dim)
		default:
			e.Embedding = vec
		}

		if !e.Degraded {
			slog.Debug("embedded glossary term", "term", e.KeyTerm, "source", e.SourceField)
		}
		stats.BySource[e.SourceField]++
		entries = append(entries, e)
	}

	if len(pending) > 0 {
		if dim <= 0 {
			return nil, stats, fmt.Errorf("%w: every embedding failed and no dimension is configured", ErrConfiguration)
		}
		for _, i := range pending {
			entries[i].Embedding = embedding.Zero(dim)
		}
		stats.Failed = len(pending)
	}

	return entries, stats, nil
}
