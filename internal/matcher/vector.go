package matcher

import (
	"context"
	"fmt"

	"github.com/valpere/glosstran/internal"
)

// Embedder is the subset of embedding.Embedder used for queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStrategy embeds the query and returns its nearest glossary entries.
// Degraded entries are left out of vector hits and reachable by exact match
// only.
type VectorStrategy struct {
	g   Glossary
	emb Embedder
}

func NewVectorStrategy(g Glossary, emb Embedder) *VectorStrategy {
	return &VectorStrategy{g: g, emb: emb}
}

func (s *VectorStrategy) Name() string { return internal.StrategyVector }

func (s *VectorStrategy) Find(ctx context.Context, query string, topK int) ([]internal.MatchCandidate, error) {
	if s.emb == nil {
		return nil, fmt.Errorf("vector scan skipped: no embedder configured")
	}
	vec, err := s.emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vector scan skipped: %w", err)
	}

	neighbors, err := s.g.Nearest(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector scan skipped: %w", err)
	}

	out := make([]internal.MatchCandidate, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, candidate(n.Entry, n.Distance, internal.StrategyVector))
	}
	return out, nil
}
