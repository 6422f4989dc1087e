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
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/glosstran/internal/glossary"
	"github.com/valpere/glosstran/internal/store"
	"github.com/valpere/glosstran/internal/vectorindex/pgvector"
)

var embedInput string

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed the glossary and store it in the database",
	Long: `Read the glossary CSV, select one rendering per term, embed every
rendering and store the result in the SQLite database.

Terms whose embedding fails are kept with a zero vector and reported.
Rebuilding the glossary clears the translation memory.

With index.backend set to "pgvector" the vectors are also loaded into
the configured PostgreSQL table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Glossary.Path
		if embedInput != "" {
			path = embedInput
		}

		records, err := glossary.LoadCSV(path, cfg.Glossary.Columns)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Loaded %d terms from %s\n", len(records), path)

		emb, err := buildEmbedder(cfg.Embedding)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}

		ctx := context.Background()
		entries, stats, err := glossary.Build(ctx, records, emb, cfg.Embedding.Dimensions)
		if err != nil {
			return fmt.Errorf("failed to build glossary: %w", err)
		}

		// Validate before anything is written.
		gs, err := glossary.NewFlatStore(entries)
		if err != nil {
			return err
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		meta := store.GlossaryMeta{
			Source:     path,
			Model:      emb.ModelID(),
			Dimensions: gs.Dimensions(),
			Entries:    gs.Len(),
			Failed:     stats.Failed,
			BuiltAt:    time.Now(),
		}
		if err := db.SaveGlossary(ctx, meta, entries); err != nil {
			return fmt.Errorf("failed to save glossary: %w", err)
		}

		if cfg.Index.Backend == "pgvector" {
			if err := loadPGVector(ctx, entries, gs.Dimensions()); err != nil {
				return err
			}
		}

		printBuildStats(stats)
		fmt.Printf("Stored %d terms (%d dimensions) in %s\n", gs.Len(), gs.Dimensions(), cfg.Database)
		return nil
	},
}

func loadPGVector(ctx context.Context, entries []glossary.Entry, dim int) error {
	ix, err := pgvector.Open(ctx, cfg.Index.DSN, cfg.Index.Table, dim)
	if err != nil {
		return fmt.Errorf("failed to open pgvector index: %w", err)
	}
	defer ix.Close()

	terms := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		terms[i], vectors[i] = e.KeyTerm, e.Embedding
	}
	if err := ix.Replace(ctx, terms, vectors); err != nil {
		return fmt.Errorf("failed to load pgvector index: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Loaded %d vectors into %s\n", len(vectors), cfg.Index.Table)
	return nil
}

func printBuildStats(stats glossary.BuildStats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tTERMS\tSHARE")
	for _, fc := range stats.Sorted() {
		share := 0.0
		if stats.Total > 0 {
			share = float64(fc.Count) / float64(stats.Total) * 100
		}
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", fc.Field, fc.Count, share)
	}
	w.Flush()
	if stats.Failed > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d terms could not be embedded and match by exact lookup only\n", stats.Failed)
	}
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().StringVarP(&embedInput, "input", "i", "", "Glossary CSV (default glossary.path from config)")
}
