// Package config loads glosstran settings from glosstran.yaml, the
// environment (GLOSSTRAN_ prefix) and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/glosstran/internal/generator"
	"github.com/valpere/glosstran/internal/glossary"
)

// EnvPrefix is prepended to every environment variable, e.g.
// GLOSSTRAN_CHAT_MODEL for chat.model.
const EnvPrefix = "GLOSSTRAN"

var (
	validProviders = []string{"openai", "ollama"}
	validBackends  = []string{"flat", "pgvector"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

type GlossaryConfig struct {
	Path    string           `mapstructure:"path"`
	Columns glossary.Columns `mapstructure:"columns"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type IndexConfig struct {
	// Backend is "flat" (in memory) or "pgvector".
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

type TranslationConfig struct {
	Domain      string        `mapstructure:"domain"`
	SourceLang  string        `mapstructure:"source_lang"`
	TargetLang  string        `mapstructure:"target_lang"`
	TopK        int           `mapstructure:"top_k"`
	DetectTopK  int           `mapstructure:"detect_top_k"`
	DetectTerms bool          `mapstructure:"detect_terms"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Validate    bool          `mapstructure:"validate"`
	Workers     int           `mapstructure:"workers"`
	UseCache    bool          `mapstructure:"use_cache"`
}

type Config struct {
	LogLevel    string                  `mapstructure:"log_level"`
	Database    string                  `mapstructure:"database"`
	Glossary    GlossaryConfig          `mapstructure:"glossary"`
	Embedding   EmbeddingConfig         `mapstructure:"embedding"`
	Chat        generator.ServiceConfig `mapstructure:"chat"`
	Index       IndexConfig             `mapstructure:"index"`
	Translation TranslationConfig       `mapstructure:"translation"`
}

// SetDefaults registers every key so that environment variables are seen by
// Unmarshal even when the config file omits them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("database", "glosstran.db")

	v.SetDefault("glossary.path", "glossaries/glossary.csv")
	v.SetDefault("glossary.columns.term", glossary.DefaultColumns.Term)
	v.SetDefault("glossary.columns.primary", glossary.DefaultColumns.Primary)
	v.SetDefault("glossary.columns.alternate", glossary.DefaultColumns.Alternate)
	v.SetDefault("glossary.columns.transliteration", glossary.DefaultColumns.Transliteration)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.max_retries", 2)

	v.SetDefault("chat.provider", "openai")
	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.model", "gpt-4o-mini")
	v.SetDefault("chat.base_url", "")
	v.SetDefault("chat.timeout", 120*time.Second)

	v.SetDefault("index.backend", "flat")
	v.SetDefault("index.dsn", "")
	v.SetDefault("index.table", "glossary_vectors")

	v.SetDefault("translation.domain", "Buddhist")
	v.SetDefault("translation.source_lang", "zh")
	v.SetDefault("translation.target_lang", "en")
	v.SetDefault("translation.top_k", 3)
	v.SetDefault("translation.detect_top_k", 2)
	v.SetDefault("translation.detect_terms", false)
	v.SetDefault("translation.max_attempts", 1)
	v.SetDefault("translation.retry_delay", 2*time.Second)
	v.SetDefault("translation.validate", true)
	v.SetDefault("translation.workers", 1)
	v.SetDefault("translation.use_cache", false)
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads path, or searches the working directory and
// $HOME/.config/glosstran for glosstran.yaml when path is empty. A missing
// default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("glosstran")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "glosstran"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	return nil
}

// Decode unmarshals v, fills API keys from OPENAI_API_KEY when unset and
// validates the result.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = key
		}
		if cfg.Chat.APIKey == "" {
			cfg.Chat.APIKey = key
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once, wrapped in
// glossary.ErrConfiguration.
func Validate(cfg *Config) error {
	var errs []error

	if !slices.Contains(validLogLevels, strings.ToLower(cfg.LogLevel)) {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: %s", cfg.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	if cfg.Database == "" {
		errs = append(errs, errors.New("database path is required"))
	}

	c := cfg.Glossary.Columns
	if c.Term == "" || c.Primary == "" || c.Alternate == "" || c.Transliteration == "" {
		errs = append(errs, errors.New("glossary.columns must name all four columns"))
	}

	if !slices.Contains(validProviders, cfg.Embedding.Provider) {
		errs = append(errs, fmt.Errorf("embedding.provider %q is invalid; valid values: %s", cfg.Embedding.Provider, strings.Join(validProviders, ", ")))
	}
	if cfg.Embedding.Model == "" {
		errs = append(errs, errors.New("embedding.model is required"))
	}
	if cfg.Embedding.Dimensions < 0 {
		errs = append(errs, errors.New("embedding.dimensions must not be negative"))
	}

	if !slices.Contains(validProviders, cfg.Chat.Provider) {
		errs = append(errs, fmt.Errorf("chat.provider %q is invalid; valid values: %s", cfg.Chat.Provider, strings.Join(validProviders, ", ")))
	}
	if cfg.Chat.Model == "" {
		errs = append(errs, errors.New("chat.model is required"))
	}

	if !slices.Contains(validBackends, cfg.Index.Backend) {
		errs = append(errs, fmt.Errorf("index.backend %q is invalid; valid values: %s", cfg.Index.Backend, strings.Join(validBackends, ", ")))
	}
	if cfg.Index.Backend == "pgvector" && cfg.Index.DSN == "" {
		errs = append(errs, errors.New("index.dsn is required for the pgvector backend"))
	}

	t := cfg.Translation
	if t.TopK < 1 || t.DetectTopK < 1 {
		errs = append(errs, errors.New("translation.top_k and translation.detect_top_k must be at least 1"))
	}
	if t.MaxAttempts < 1 {
		errs = append(errs, errors.New("translation.max_attempts must be at least 1"))
	}
	if t.Workers < 1 {
		errs = append(errs, errors.New("translation.workers must be at least 1"))
	}
	if t.TargetLang == "" {
		errs = append(errs, errors.New("translation.target_lang is required"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", glossary.ErrConfiguration, errors.Join(errs...))
}

// APIKeyRequired reports whether provider needs an API key. Ollama runs
// locally; OpenAI-compatible gateways without auth can pass any value.
func APIKeyRequired(provider string) bool {
	return provider == "openai"
}
