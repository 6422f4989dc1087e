package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/valpere/glosstran/internal"
	"github.com/valpere/glosstran/internal/config"
	"github.com/valpere/glosstran/internal/generator"
	"github.com/valpere/glosstran/internal/glossary"
	"github.com/valpere/glosstran/internal/matcher"
	"github.com/valpere/glosstran/internal/orchestrator"
	"github.com/valpere/glosstran/internal/store"
)

func testSession(t *testing.T, reply string) (*session, *atomic.Int32) {
	t.Helper()

	gs, err := glossary.NewFlatStore([]glossary.Entry{
		{KeyTerm: "无常", Candidates: []string{"impermanent"}, Selected: "impermanent", SourceField: glossary.FieldPrimary, Embedding: []float32{1, 0}},
		{KeyTerm: "苦", Candidates: []string{"suffering"}, Selected: "suffering", SourceField: glossary.FieldPrimary, Embedding: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("NewFlatStore: %v", err)
	}

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var calls atomic.Int32
	gen := generator.GeneratorFunc(func(ctx context.Context, msgs []generator.Message) (string, error) {
		calls.Add(1)
		return reply, nil
	})

	orch := orchestrator.New(matcher.New(matcher.NewExactStrategy(gs)), gen, orchestrator.Config{
		SourceLang: "Chinese",
		TargetLang: "English",
	})

	cfg = &config.Config{Translation: config.TranslationConfig{SourceLang: "zh", TargetLang: "en"}}
	return &session{db: db, glossary: gs, orch: orch, gen: gen}, &calls
}

func TestREPL_SkipsBlankLinesAndStopsOnExitWord(t *testing.T) {
	s, calls := testSession(t, "All conditioned things are impermanent.")

	in := strings.NewReader("\n诸行无常\n   \nQuit\n一切皆苦\n")
	var out bytes.Buffer
	if err := repl(context.Background(), s, in, &out); err != nil {
		t.Fatalf("repl: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 generate call, got %d", got)
	}
	text := out.String()
	for _, want := range []string{"All conditioned things are impermanent.", "impermanent (en)", "✓", "[distance: 0.0000]"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	history, err := s.db.ListHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 1 || history[0].Used != 1 || history[0].Total != 1 {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestTranslateOne_UsesTranslationMemory(t *testing.T) {
	s, calls := testSession(t, "All is suffering.")
	cfg.Translation.UseCache = true

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		var out bytes.Buffer
		if err := translateOne(ctx, s, &out, "一切皆苦"); err != nil {
			t.Fatalf("translateOne #%d: %v", i, err)
		}
		if !strings.Contains(out.String(), "All is suffering.") {
			t.Errorf("translateOne #%d output: %s", i, out.String())
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected the second call to be served from memory, got %d generate calls", got)
	}
}

type fixedDetector []string

func (d fixedDetector) Detect(context.Context, string) ([]string, error) { return d, nil }

func TestTranslateOne_RecordsDetectedTerms(t *testing.T) {
	s, _ := testSession(t, "All is suffering.")
	s.orch = orchestrator.New(matcher.New(matcher.NewExactStrategy(s.glossary)), s.gen,
		orchestrator.Config{SourceLang: "Chinese", TargetLang: "English"},
		orchestrator.WithTermDetector(fixedDetector{"苦"}))

	ctx := context.Background()
	var out bytes.Buffer
	if err := translateOne(ctx, s, &out, "一切皆苦"); err != nil {
		t.Fatalf("translateOne: %v", err)
	}

	history, err := s.db.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 1 || len(history[0].Detected) != 1 || history[0].Detected[0] != "苦" {
		t.Errorf("expected detected terms in history, got %+v", history)
	}
}

func TestUsageLine(t *testing.T) {
	m := internal.MatchCandidate{KeyTerm: "苦", SelectedTranslation: "suffering", SourceField: "en_v", Distance: 0.25}

	used := usageLine(m, true)
	for _, want := range []string{"苦", "→ suffering (en_v)", "✓", "[distance: 0.2500]"} {
		if !strings.Contains(used, want) {
			t.Errorf("usageLine missing %q: %s", want, used)
		}
	}
	if unused := usageLine(m, false); !strings.Contains(unused, "✗") {
		t.Errorf("unused line should carry ✗: %s", unused)
	}
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte("诸行无常\n\n  一切皆苦  \r\n\t\n"), 0644); err != nil {
		t.Fatal(err)
	}

	lines, err := readLines(path)
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "诸行无常" || lines[1] != "一切皆苦" {
		t.Errorf("readLines = %q", lines)
	}
}

func TestSnippet(t *testing.T) {
	if got := snippet("诸行无常", 10); got != "诸行无常" {
		t.Errorf("short snippet = %q", got)
	}
	if got := snippet("诸行无常一切皆苦", 5); got != "诸行无常…" {
		t.Errorf("long snippet = %q", got)
	}
}
