package store

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/valpere/glosstran/internal"
	"github.com/valpere/glosstran/internal/glossary"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() *internal.TranslationResult {
	return &internal.TranslationResult{
		Query:       "诸行无常",
		Translation: "All conditioned things are impermanent.",
		Context:     "无常 → impermanent (en)",
		Matches: []internal.MatchCandidate{
			{KeyTerm: "无常", SelectedTranslation: "impermanent", SourceField: "en", Strategy: internal.StrategyExact},
			{KeyTerm: "苦", SelectedTranslation: "suffering", SourceField: "en", Distance: 1.5, Strategy: internal.StrategyVector},
		},
		UsageFlags: []bool{true, false},
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_GlossaryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.LoadGlossary(ctx); !errors.Is(err, ErrNoGlossary) {
		t.Fatalf("expected ErrNoGlossary on empty store, got %v", err)
	}

	entries := []glossary.Entry{
		{KeyTerm: "无常", Candidates: []string{"impermanence", "anicca", "无常"}, Selected: "impermanence",
			SourceField: glossary.FieldPrimary, Embedding: []float32{0.25, -1.5, 3}},
		{KeyTerm: "苦", Candidates: []string{"suffering", "苦"}, Selected: "suffering",
			SourceField: glossary.FieldError, Embedding: []float32{0, 0, 0}, Degraded: true},
	}
	meta := GlossaryMeta{Source: "glossary.csv", Model: "mock", Dimensions: 3, Failed: 1}
	if err := s.SaveGlossary(ctx, meta, entries); err != nil {
		t.Fatalf("SaveGlossary failed: %v", err)
	}

	gotMeta, got, err := s.LoadGlossary(ctx)
	if err != nil {
		t.Fatalf("LoadGlossary failed: %v", err)
	}
	if gotMeta.Model != "mock" || gotMeta.Dimensions != 3 || gotMeta.Entries != 2 || gotMeta.Failed != 1 {
		t.Errorf("unexpected meta: %+v", gotMeta)
	}
	if gotMeta.BuiltAt.IsZero() {
		t.Error("expected BuiltAt to be set")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	for i := range entries {
		if got[i].KeyTerm != entries[i].KeyTerm || got[i].Selected != entries[i].Selected ||
			got[i].SourceField != entries[i].SourceField || got[i].Degraded != entries[i].Degraded {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
		if !slices.Equal(got[i].Embedding, entries[i].Embedding) {
			t.Errorf("entry %d embedding = %v, want %v", i, got[i].Embedding, entries[i].Embedding)
		}
		if !slices.Equal(got[i].Candidates, entries[i].Candidates) {
			t.Errorf("entry %d candidates = %v, want %v", i, got[i].Candidates, entries[i].Candidates)
		}
	}
}

func TestStore_SaveGlossary_ClearsMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, "zh", "en", sampleResult()); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}
	err := s.SaveGlossary(ctx, GlossaryMeta{Dimensions: 1}, []glossary.Entry{{KeyTerm: "a", Embedding: []float32{1}}})
	if err != nil {
		t.Fatalf("SaveGlossary failed: %v", err)
	}
	if _, found, _ := s.GetCachedTranslation(ctx, "诸行无常", "zh", "en"); found {
		t.Error("expected memory to be cleared by a glossary rebuild")
	}
}

func TestStore_GetCachedTranslation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, found, err := s.GetCachedTranslation(ctx, "诸行无常", "zh", "en"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	if err := s.SaveToMemory(ctx, "zh", "en", sampleResult()); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	// Surrounding whitespace is ignored by the cache key.
	res, found, err := s.GetCachedTranslation(ctx, "  诸行无常\n", "zh", "en")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if res.Translation != "All conditioned things are impermanent." || len(res.Matches) != 2 {
		t.Errorf("unexpected cached result: %+v", res)
	}
	if !slices.Equal(res.UsageFlags, []bool{true, false}) {
		t.Errorf("unexpected usage flags: %v", res.UsageFlags)
	}
	if res.Matches[1].Distance != 1.5 || res.Matches[1].Strategy != internal.StrategyVector {
		t.Errorf("match not restored: %+v", res.Matches[1])
	}

	if _, found, _ := s.GetCachedTranslation(ctx, "诸行无常", "zh", "uk"); found {
		t.Error("expected miss for another language pair")
	}
}

func TestStore_InvalidateAndDeleteMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, "zh", "en", sampleResult()); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}
	entries, err := s.ListMemory(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListMemory = %v, %v", entries, err)
	}

	if err := s.InvalidateMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("InvalidateMemory failed: %v", err)
	}
	if _, found, _ := s.GetCachedTranslation(ctx, "诸行无常", "zh", "en"); found {
		t.Error("expected invalidated entry to be skipped")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 1 || stats.InvalidEntries != 1 || stats.ActiveEntries != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := s.DeleteMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteMemory failed: %v", err)
	}
	if entries, _ := s.ListMemory(ctx); len(entries) != 0 {
		t.Errorf("expected empty memory, got %d entries", len(entries))
	}
}

func TestStore_ClearMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r1 := sampleResult()
	r2 := sampleResult()
	r2.Query = "一切皆苦"
	s.SaveToMemory(ctx, "zh", "en", r1)
	s.SaveToMemory(ctx, "zh", "en", r2)

	n, err := s.ClearMemory(ctx)
	if err != nil {
		t.Fatalf("ClearMemory failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows removed, got %d", n)
	}
}

func TestStore_History(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := internal.TranslationRequest{ID: "req-1", SourceText: "诸行无常", SourceLang: "zh", TargetLang: "en",
		Timestamp: time.Now().Add(-time.Minute)}
	newer := internal.TranslationRequest{ID: "req-2", SourceText: "一切皆苦", SourceLang: "zh", TargetLang: "en",
		Detected: []string{"苦"}, Timestamp: time.Now()}

	for _, req := range []internal.TranslationRequest{older, newer} {
		if err := s.SaveRequest(ctx, req); err != nil {
			t.Fatalf("SaveRequest failed: %v", err)
		}
	}
	if err := s.SaveResult(ctx, "req-1", sampleResult(), 120*time.Millisecond, ""); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if err := s.SaveResult(ctx, "req-2", nil, 0, "generation failed"); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	hist, err := s.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	if hist[0].ID != "req-2" || hist[0].Error != "generation failed" {
		t.Errorf("expected newest failed request first, got %+v", hist[0])
	}
	if len(hist[0].Detected) != 1 || hist[0].Detected[0] != "苦" {
		t.Errorf("expected detected terms to round-trip, got %v", hist[0].Detected)
	}
	if hist[1].Detected != nil {
		t.Errorf("expected no detected terms for whole-query request, got %v", hist[1].Detected)
	}
	if hist[1].Used != 1 || hist[1].Total != 2 || hist[1].LatencyMs != 120 {
		t.Errorf("unexpected result row: %+v", hist[1])
	}

	if hist, _ := s.ListHistory(ctx, 1); len(hist) != 1 {
		t.Errorf("expected limit to apply, got %d entries", len(hist))
	}

	n, err := s.ClearHistory(ctx)
	if err != nil || n != 2 {
		t.Errorf("ClearHistory = %d, %v", n, err)
	}
}

func TestNormalizeText(t *testing.T) {
	// Decomposed e + combining acute must match the precomposed form.
	if got := normalizeText("  cafe\u0301 "); got != "caf\u00e9" {
		t.Errorf("normalizeText() = %q", got)
	}
}

func TestEncodeVector(t *testing.T) {
	v := []float32{1, -0.5, 3.25}
	got, err := decodeVector(encodeVector(v), len(v))
	if err != nil {
		t.Fatalf("decodeVector: %v", err)
	}
	if !slices.Equal(got, v) {
		t.Errorf("got %v, want %v", got, v)
	}
	if _, err := decodeVector([]byte{1, 2, 3}, 1); err == nil {
		t.Error("expected error for short blob")
	}
}
