// Package embedding turns text into fixed-length vectors. Glossary entries are
// embedded once at build time; queries are embedded on every vector scan.
package embedding

import (
	"context"
	"errors"
)

// ErrEmbedding marks a failed embedding call. Callers degrade instead of
// aborting: a zero vector for glossary entries, exact-only matching for
// queries.
var ErrEmbedding = errors.New("embedding failed")

// Embedder is implemented by every embedding backend. Implementations must be
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions is the configured vector length, or 0 when unknown until
	// the first successful call.
	Dimensions() int
	ModelID() string
}

// Zero returns a zero vector of length dim.
func Zero(dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	return make([]float32, dim)
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
