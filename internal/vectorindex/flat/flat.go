// Package flat is an exact brute-force index using squared Euclidean
// distance, the metric of a flat L2 index.
package flat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/valpere/glosstran/internal/vectorindex"
)

var _ vectorindex.Index = (*Index)(nil)

// Index keeps every vector in memory. Add must not be called concurrently
// with Search; the glossary loads it once and only searches afterwards.
type Index struct {
	dim     int
	vectors [][]float32
}

func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, errors.New("flat index: dimension must be positive")
	}
	return &Index{dim: dim}, nil
}

// Add appends vectors; their IDs are their positions in insertion order.
func (ix *Index) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("flat index: vector %d has %d components, want %d: %w",
				len(ix.vectors)+i, len(v), ix.dim, vectorindex.ErrDimensionMismatch)
		}
	}
	for _, v := range vectors {
		ix.vectors = append(ix.vectors, slices.Clone(v))
	}
	return nil
}

func (ix *Index) Dimensions() int { return ix.dim }

func (ix *Index) Len() int { return len(ix.vectors) }

// Search scans every vector. Ties keep insertion order.
func (ix *Index) Search(ctx context.Context, vec []float32, k int) ([]vectorindex.Hit, error) {
	if len(vec) != ix.dim {
		return nil, fmt.Errorf("flat index: query has %d components, want %d: %w",
			len(vec), ix.dim, vectorindex.ErrDimensionMismatch)
	}
	if k <= 0 || len(ix.vectors) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make([]vectorindex.Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = vectorindex.Hit{ID: i, Distance: squaredL2(v, vec)}
	}
	slices.SortStableFunc(hits, func(a, b vectorindex.Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
