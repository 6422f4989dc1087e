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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/glosstran/internal"
	"github.com/valpere/glosstran/internal/chunker"
	"github.com/valpere/glosstran/internal/orchestrator"
	"github.com/valpere/glosstran/internal/report"
)

var (
	fileOutput   string
	fileReport   string
	fileWorkers  int
	fileMaxChars int
)

var translateFileCmd = &cobra.Command{
	Use:   "file <input>",
	Short: "Translate every non-blank line of a file",
	Long: `Translate each non-blank line of the input file as a separate query.

The output holds one block per line: the source, its translation and the
reference terms, followed by a dashed rule. A line that fails is written
with its error and does not stop the run.

--max-chars splits longer lines at sentence or clause punctuation so
that each query stays short enough for precise glossary matching.

--report writes a summary with per-line term usage; the format follows
the extension (.md or .html).

Example:
  glosstran translate file sutra.txt -o sutra.en.txt --workers 4 --report sutra.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == fileOutput {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		lines, err := readLines(args[0])
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("input file %s has no text to translate", args[0])
		}

		queries, origin := chunker.Lines(lines, fileMaxChars)
		if len(queries) != len(lines) {
			fmt.Fprintf(os.Stderr, "Split %d lines into %d queries\n", len(lines), len(queries))
		}

		ctx := context.Background()
		s, err := newSession(ctx, detectTerms || cfg.Translation.DetectTerms)
		if err != nil {
			return err
		}
		defer s.close()

		workers := cfg.Translation.Workers
		if cmd.Flags().Changed("workers") {
			workers = fileWorkers
		}
		fmt.Fprintf(os.Stderr, "Translating %d queries with %d workers...\n", len(queries), workers)

		start := time.Now()
		items := s.orch.TranslateBatch(ctx, queries, workers)
		elapsed := time.Since(start)

		recordBatch(ctx, s, items, elapsed)

		if err := writeBatch(items); err != nil {
			return err
		}

		if fileReport != "" {
			t := cfg.Translation
			meta := report.Meta{
				Input:      args[0],
				Model:      s.gen.Name() + "/" + cfg.Chat.Model,
				SourceLang: t.SourceLang,
				TargetLang: t.TargetLang,
				Generated:  time.Now(),
			}
			if err := report.WriteFile(fileReport, items, meta); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Report written to %s\n", fileReport)
		}

		for _, it := range items {
			if it.Err != nil {
				fmt.Fprintf(os.Stderr, "Line %d failed: %v\n", origin[it.Index]+1, it.Err)
			}
		}
		failed := orchestrator.Failed(items)
		fmt.Fprintf(os.Stderr, "Translated %d/%d queries in %s\n", len(items)-failed, len(items), elapsed.Round(time.Millisecond))
		if failed == len(items) {
			return fmt.Errorf("all %d queries failed", failed)
		}
		return nil
	},
}

// readLines returns the trimmed non-blank lines of path.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return lines, nil
}

func writeBatch(items []orchestrator.BatchItem) error {
	var w io.Writer = os.Stdout
	if fileOutput != "" {
		if err := os.MkdirAll(filepath.Dir(fileOutput), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(fileOutput)
		if err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := report.WriteText(w, items); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// recordBatch stores every item in the history tables. Per-item latency is
// not tracked in batch mode; each item gets the batch average.
func recordBatch(ctx context.Context, s *session, items []orchestrator.BatchItem, elapsed time.Duration) {
	avg := elapsed / time.Duration(max(len(items), 1))
	t := cfg.Translation
	for _, it := range items {
		req := internal.TranslationRequest{
			ID:         uuid.NewString(),
			SourceText: it.Query,
			SourceLang: t.SourceLang,
			TargetLang: t.TargetLang,
			Timestamp:  time.Now(),
		}
		record(ctx, s, req, it.Result, avg, it.Err)
	}
}

func init() {
	translateCmd.AddCommand(translateFileCmd)

	translateFileCmd.Flags().StringVarP(&fileOutput, "output", "o", "", "Output file (default stdout)")
	translateFileCmd.Flags().StringVar(&fileReport, "report", "", "Write a Markdown or HTML usage report")
	translateFileCmd.Flags().IntVar(&fileMaxChars, "max-chars", 0, "Split lines longer than this many characters (0 = never)")
	translateFileCmd.Flags().IntVarP(&fileWorkers, "workers", "w", 1, "Concurrent translations (default translation.workers from config)")
}
