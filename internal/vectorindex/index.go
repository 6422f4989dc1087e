// Package vectorindex defines the nearest-neighbour capability the glossary
// store delegates to. Sub-packages provide an in-memory exact index and a
// PostgreSQL/pgvector index.
package vectorindex

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit references a stored vector by its insertion position. Lower distance
// means more similar.
type Hit struct {
	ID       int
	Distance float64
}

// Index answers k-nearest-neighbour queries. It is read-only at query time
// and safe for concurrent use.
type Index interface {
	// Search returns at most k hits ordered by ascending distance.
	Search(ctx context.Context, vec []float32, k int) ([]Hit, error)
	Dimensions() int
	Len() int
}
