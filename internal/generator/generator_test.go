package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaGenerator_New(t *testing.T) {
	g := NewOllamaGenerator("qwen2.5:7b", "", 0)

	if g.baseURL != DefaultOllamaURL {
		t.Errorf("expected default baseURL, got %q", g.baseURL)
	}
	if g.client == nil {
		t.Error("expected non-nil HTTP client")
	}
	if g.Name() != "ollama" {
		t.Errorf("expected name 'ollama', got %q", g.Name())
	}
	if g.Model() != "qwen2.5:7b" {
		t.Errorf("expected model 'qwen2.5:7b', got %q", g.Model())
	}
}

func TestOllamaGenerator_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Stream {
			t.Error("expected stream=false")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: RoleAssistant, Content: "Everything is impermanent."},
		})
	}))
	defer server.Close()

	g := NewOllamaGenerator("qwen2.5:7b", server.URL, time.Second)
	out, err := g.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a translator."},
		{Role: RoleUser, Content: "一切都是无常的"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Everything is impermanent." {
		t.Errorf("unexpected output %q", out)
	}
}

func TestOllamaGenerator_Generate_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	g := NewOllamaGenerator("m", server.URL, time.Second)
	if _, err := g.Generate(context.Background(), nil); !errors.Is(err, ErrGeneration) {
		t.Errorf("expected ErrGeneration, got %v", err)
	}
}

func TestOllamaGenerator_Generate_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	g := NewOllamaGenerator("m", server.URL, time.Second)
	if _, err := g.Generate(context.Background(), nil); !errors.Is(err, ErrGeneration) {
		t.Errorf("expected ErrGeneration, got %v", err)
	}
}

func TestNewOpenAIGenerator_Validation(t *testing.T) {
	if _, err := NewOpenAIGenerator(ServiceConfig{Model: "gpt-4o-mini"}); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := NewOpenAIGenerator(ServiceConfig{APIKey: "sk-test"}); err == nil {
		t.Error("expected error without model")
	}
	g, err := NewOpenAIGenerator(ServiceConfig{APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Name() != "openai" {
		t.Errorf("expected name 'openai', got %q", g.Name())
	}
}

func TestConvertMessages(t *testing.T) {
	out := convertMessages([]Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleAssistant, Content: "a"},
	})
	if len(out) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(out))
	}
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(ctx context.Context, messages []Message) (string, error) {
		return "ok", nil
	})
	out, err := g.Generate(context.Background(), nil)
	if err != nil || out != "ok" {
		t.Errorf("unexpected result %q, %v", out, err)
	}
}
