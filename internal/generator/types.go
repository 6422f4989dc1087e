// Package generator wraps text-generation backends behind a single blocking
// call: a list of chat messages in, one completion out.
package generator

import (
	"context"
	"errors"
	"time"
)

// ErrGeneration marks a failed or empty generation call. It is never
// swallowed as an empty translation.
var ErrGeneration = errors.New("generation failed")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ServiceConfig mirrors the chat section of the configuration file.
type ServiceConfig struct {
	Provider string        `mapstructure:"provider" json:"provider"`
	APIKey   string        `mapstructure:"api_key" json:"api_key"`
	Model    string        `mapstructure:"model" json:"model"`
	BaseURL  string        `mapstructure:"base_url" json:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// Generator is implemented by every text-generation backend.
type Generator interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, messages []Message) (string, error)

func (f GeneratorFunc) Name() string { return "func" }

func (f GeneratorFunc) Generate(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}
