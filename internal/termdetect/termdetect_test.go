package termdetect

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/valpere/glosstran/internal/generator"
)

func TestDetect(t *testing.T) {
	var got []generator.Message
	gen := generator.GeneratorFunc(func(_ context.Context, msgs []generator.Message) (string, error) {
		got = msgs
		return "<think>hmm</think>无常、苦\n涅槃, 无常", nil
	})

	terms, err := New(gen, "Buddhist", "Chinese").Detect(context.Background(), "诸行无常，一切皆苦")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if want := []string{"无常", "苦", "涅槃"}; !slices.Equal(terms, want) {
		t.Errorf("Detect() = %v, want %v", terms, want)
	}

	if len(got) != 2 || got[0].Role != generator.RoleSystem || got[1].Role != generator.RoleUser {
		t.Fatalf("unexpected messages: %+v", got)
	}
	if !strings.Contains(got[0].Content, "Buddhist terminology") {
		t.Errorf("system prompt missing domain: %q", got[0].Content)
	}
	if !strings.HasSuffix(got[1].Content, "诸行无常，一切皆苦") {
		t.Errorf("user prompt missing query: %q", got[1].Content)
	}
}

func TestMessages_NoDomain(t *testing.T) {
	msgs := New(nil, "", "Chinese").Messages("诸行无常")
	for _, m := range msgs {
		if strings.Contains(m.Content, "  ") {
			t.Errorf("%s prompt has a double space: %q", m.Role, m.Content)
		}
	}
	if !strings.HasPrefix(msgs[1].Content, "List the terms that appear") {
		t.Errorf("unexpected user prompt: %q", msgs[1].Content)
	}
}

func TestDetect_Error(t *testing.T) {
	gen := generator.GeneratorFunc(func(context.Context, []generator.Message) (string, error) {
		return "", generator.ErrGeneration
	})
	_, err := New(gen, "", "Chinese").Detect(context.Background(), "x")
	if !errors.Is(err, generator.ErrGeneration) {
		t.Errorf("expected ErrGeneration, got %v", err)
	}
}
