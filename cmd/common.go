/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/valpere/glosstran/internal/config"
	"github.com/valpere/glosstran/internal/detector"
	"github.com/valpere/glosstran/internal/embedding"
	"github.com/valpere/glosstran/internal/generator"
	"github.com/valpere/glosstran/internal/glossary"
	"github.com/valpere/glosstran/internal/matcher"
	"github.com/valpere/glosstran/internal/orchestrator"
	"github.com/valpere/glosstran/internal/store"
	"github.com/valpere/glosstran/internal/termdetect"
	"github.com/valpere/glosstran/internal/validator"
	"github.com/valpere/glosstran/internal/vectorindex/pgvector"
)

// buildEmbedder constructs the configured embedding provider.
func buildEmbedder(c config.EmbeddingConfig) (embedding.Embedder, error) {
	switch c.Provider {
	case "openai":
		opts := []embedding.OpenAIOption{
			embedding.WithTimeout(c.Timeout),
			embedding.WithMaxRetries(c.MaxRetries),
		}
		if c.BaseURL != "" {
			opts = append(opts, embedding.WithBaseURL(c.BaseURL))
		}
		if c.Dimensions > 0 {
			opts = append(opts, embedding.WithDimensions(c.Dimensions))
		}
		return embedding.NewOpenAIEmbedder(c.APIKey, c.Model, opts...)
	case "ollama":
		return embedding.NewOllamaEmbedder(c.Model, c.BaseURL, c.Dimensions, c.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", glossary.ErrConfiguration, c.Provider)
	}
}

// buildGenerator constructs the configured chat provider.
func buildGenerator(c generator.ServiceConfig) (generator.Generator, error) {
	if config.APIKeyRequired(c.Provider) && c.APIKey == "" {
		return nil, fmt.Errorf("%w: chat.api_key or OPENAI_API_KEY is required for provider %q", glossary.ErrConfiguration, c.Provider)
	}
	switch c.Provider {
	case "openai":
		return generator.NewOpenAIGenerator(c)
	case "ollama":
		return generator.NewOllamaGenerator(c.Model, c.BaseURL, c.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown chat provider %q", glossary.ErrConfiguration, c.Provider)
	}
}

func openStore() (*store.Store, error) {
	db, err := store.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// session bundles everything a translate run needs. close releases the
// database and the optional PostgreSQL pool.
type session struct {
	db       *store.Store
	glossary *glossary.Store
	meta     store.GlossaryMeta
	orch     *orchestrator.Orchestrator
	gen      generator.Generator
	closers  []func()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// loadGlossary reads the embedded glossary from the database and attaches
// the configured vector index. A pgvector index that cannot be reached
// leaves the store without an index; matching then degrades to exact-only.
func loadGlossary(ctx context.Context, db *store.Store) (*glossary.Store, store.GlossaryMeta, func(), error) {
	noop := func() {}

	meta, entries, err := db.LoadGlossary(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoGlossary) {
			return nil, meta, noop, fmt.Errorf("%w: run \"glosstran embed\" first", err)
		}
		return nil, meta, noop, fmt.Errorf("failed to load glossary: %w", err)
	}

	if cfg.Index.Backend != "pgvector" {
		gs, err := glossary.NewFlatStore(entries)
		return gs, meta, noop, err
	}

	ix, err := pgvector.Open(ctx, cfg.Index.DSN, cfg.Index.Table, meta.Dimensions)
	if err != nil {
		slog.Warn("vector index unavailable, using exact matching only", "err", err)
		gs, serr := glossary.NewStore(entries, nil)
		return gs, meta, noop, serr
	}
	gs, err := glossary.NewStore(entries, ix)
	if err != nil {
		ix.Close()
		return nil, meta, noop, err
	}
	return gs, meta, ix.Close, nil
}

// newSession wires store, glossary, providers and orchestrator from cfg.
func newSession(ctx context.Context, detectTerms bool) (*session, error) {
	s := &session{}

	db, err := openStore()
	if err != nil {
		return nil, err
	}
	s.db = db
	s.closers = append(s.closers, func() { db.Close() })

	gs, meta, closeIndex, err := loadGlossary(ctx, db)
	if err != nil {
		s.close()
		return nil, err
	}
	s.glossary, s.meta = gs, meta
	s.closers = append(s.closers, closeIndex)

	if meta.Model != "" && meta.Model != cfg.Embedding.Model {
		slog.Warn("glossary was embedded with a different model", "glossary", meta.Model, "configured", cfg.Embedding.Model)
	}

	emb, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		slog.Warn("embedding provider unavailable, using exact matching only", "err", err)
		emb = nil
	}
	gen, err := buildGenerator(cfg.Chat)
	if err != nil {
		s.close()
		return nil, err
	}
	s.gen = gen

	var m *matcher.Matcher
	if emb != nil {
		m = matcher.NewDefault(gs, emb)
	} else {
		m = matcher.New(matcher.NewExactStrategy(gs))
	}

	t := cfg.Translation
	oc := orchestrator.Config{
		Domain:      t.Domain,
		SourceLang:  detector.Name(t.SourceLang),
		TargetLang:  detector.Name(t.TargetLang),
		TargetCode:  t.TargetLang,
		TopK:        t.TopK,
		DetectTopK:  t.DetectTopK,
		Timeout:     cfg.Chat.Timeout,
		MaxAttempts: t.MaxAttempts,
		RetryDelay:  t.RetryDelay,
	}
	var opts []orchestrator.Option
	if detectTerms {
		opts = append(opts, orchestrator.WithTermDetector(termdetect.New(gen, t.Domain, oc.SourceLang)))
	}
	if t.Validate {
		opts = append(opts, orchestrator.WithValidator(validator.New(t.SourceLang, t.TargetLang)))
	}
	s.orch = orchestrator.New(m, gen, oc, opts...)

	slog.Debug("session ready", "terms", gs.Len(), "dimensions", gs.Dimensions(), "index", gs.HasIndex(), "model", gen.Name())
	return s, nil
}
