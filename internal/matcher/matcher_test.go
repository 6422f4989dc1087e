package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/valpere/glosstran/internal"
	"github.com/valpere/glosstran/internal/embedding"
	"github.com/valpere/glosstran/internal/glossary"
)

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	return m.vec, m.err
}

func newStore(t *testing.T, entries ...glossary.Entry) *glossary.Store {
	t.Helper()
	s, err := glossary.NewFlatStore(entries)
	if err != nil {
		t.Fatalf("NewFlatStore: %v", err)
	}
	return s
}

func entry(term, selected string, vec ...float32) glossary.Entry {
	return glossary.Entry{KeyTerm: term, Selected: selected, SourceField: glossary.FieldPrimary, Embedding: vec}
}

func keys(c []internal.MatchCandidate) []string {
	out := make([]string, len(c))
	for i, m := range c {
		out[i] = m.KeyTerm
	}
	return out
}

func TestMatch_ExactDominatesVector(t *testing.T) {
	store := newStore(t,
		entry("无常", "impermanence", 1, 0),
		entry("苦", "suffering", 0, 1),
		entry("涅槃", "nirvana", 0.5, 0.5),
	)
	// The query vector sits right on 无常, but 无常 must keep distance 0.
	emb := &mockEmbedder{vec: []float32{1, 0}}
	m := NewDefault(store, emb)

	res := m.Match(context.Background(), "诸行无常", 3)
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %+v", res.Candidates)
	}

	first := res.Candidates[0]
	if first.KeyTerm != "无常" || first.Distance != 0 || first.Strategy != internal.StrategyExact {
		t.Errorf("expected exact 无常 at distance 0, got %+v", first)
	}
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].Distance < res.Candidates[i-1].Distance {
			t.Errorf("candidates not sorted: %+v", res.Candidates)
		}
		if res.Candidates[i].KeyTerm == "无常" {
			t.Errorf("duplicate key term: %+v", res.Candidates)
		}
	}
}

func TestExactStrategy_OverlapSuppression(t *testing.T) {
	store := newStore(t,
		entry("苦", "suffering", 0, 1),
		entry("苦难", "hardship", 1, 0),
	)
	s := NewExactStrategy(store)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"inside longer term", "众生苦难", []string{"苦难"}},
		{"also standalone", "苦难与苦", []string{"苦难", "苦"}},
		{"only shorter", "一切皆苦", []string{"苦"}},
		{"none", "涅槃寂静", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Find(context.Background(), tt.query, 0)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			k := keys(got)
			if len(k) != len(tt.want) {
				t.Fatalf("Find(%q) = %v, want %v", tt.query, k, tt.want)
			}
			for i := range k {
				if k[i] != tt.want[i] {
					t.Errorf("Find(%q) = %v, want %v", tt.query, k, tt.want)
				}
			}
		})
	}
}

func TestMatch_DegradesWithoutEmbeddings(t *testing.T) {
	store := newStore(t, entry("无常", "impermanence", 1, 0), entry("苦", "suffering", 0, 1))
	emb := &mockEmbedder{err: embedding.ErrEmbedding}

	res := NewDefault(store, emb).Match(context.Background(), "诸行无常", 3)
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], embedding.ErrEmbedding) {
		t.Fatalf("expected one embedding warning, got %v", res.Warnings)
	}
	if k := keys(res.Candidates); len(k) != 1 || k[0] != "无常" {
		t.Errorf("expected exact-only result, got %v", k)
	}
}

func TestMatch_DegradedEntryExactOnly(t *testing.T) {
	degraded := glossary.Entry{KeyTerm: "涅槃", Selected: "nirvana", SourceField: glossary.FieldError,
		Embedding: []float32{0, 0}, Degraded: true}
	store := newStore(t, entry("无常", "impermanence", 1, 0), entry("苦", "suffering", 0.2, 0.98), degraded)
	m := NewDefault(store, &mockEmbedder{vec: []float32{1, 0}})

	res := m.Match(context.Background(), "诸行无常", 2)
	if k := keys(res.Candidates); len(k) != 2 || k[0] != "无常" || k[1] != "苦" {
		t.Errorf("expected 无常 then 苦 from the vector scan, got %v", k)
	}

	res = m.Match(context.Background(), "涅槃寂静", 2)
	found := false
	for _, c := range res.Candidates {
		if c.KeyTerm == "涅槃" {
			found = c.Strategy == internal.StrategyExact && c.Distance == 0
		}
	}
	if !found {
		t.Errorf("expected degraded 涅槃 as an exact hit, got %+v", res.Candidates)
	}
}

func TestMatch_IndexUnavailable(t *testing.T) {
	store, err := glossary.NewStore([]glossary.Entry{entry("无常", "impermanence", 1, 0)}, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	res := NewDefault(store, &mockEmbedder{vec: []float32{1, 0}}).Match(context.Background(), "无常", 3)
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], glossary.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable warning, got %v", res.Warnings)
	}
	if len(res.Candidates) != 1 {
		t.Errorf("expected the exact hit to survive, got %+v", res.Candidates)
	}
}

func TestMatch_AmbiguousTermUsesFirst(t *testing.T) {
	store := newStore(t, entry("苦", "suffering", 0, 1), entry("苦", "dukkha", 0, 2))
	res := New(NewExactStrategy(store)).Match(context.Background(), "苦", 3)

	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], glossary.ErrAmbiguousLookup) {
		t.Fatalf("expected ambiguity warning, got %v", res.Warnings)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].SelectedTranslation != "suffering" {
		t.Errorf("expected first entry, got %+v", res.Candidates)
	}
}

func TestMatch_EmptyQuery(t *testing.T) {
	store := newStore(t, entry("无常", "impermanence", 1, 0))
	emb := &mockEmbedder{vec: []float32{1, 0}}

	res := NewDefault(store, emb).Match(context.Background(), "  \n", 3)
	if len(res.Candidates) != 0 || len(res.Warnings) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if emb.calls != 0 {
		t.Errorf("embedder should not be called for an empty query")
	}
}

func TestMatch_TopKLimitsVectorHits(t *testing.T) {
	store := newStore(t,
		entry("a", "alpha", 1, 0),
		entry("b", "beta", 0.9, 0),
		entry("c", "gamma", 0.8, 0),
		entry("d", "delta", 0.7, 0),
	)
	m := New(NewVectorStrategy(store, &mockEmbedder{vec: []float32{1, 0}}))

	if got := m.Match(context.Background(), "zzz", DefaultDetectTopK).Candidates; len(got) != 2 {
		t.Errorf("expected 2 vector hits, got %+v", got)
	}
	if got := m.Match(context.Background(), "zzz", 0).Candidates; len(got) != DefaultTopK {
		t.Errorf("expected default top-k hits, got %+v", got)
	}
}
