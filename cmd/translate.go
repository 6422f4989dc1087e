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
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/glosstran/internal"
)

var (
	detectTerms bool
	useCache    bool
)

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate text grounded in the glossary",
	Long: `Translate one sentence given as arguments, or start an interactive
session when no arguments are given.

Every translation lists the glossary terms handed to the model and marks
whether each term's rendering appears in the output.

In interactive mode empty lines are ignored; type exit, quit or bye to
leave.

With --detect-terms the model first extracts the domain terms of the
sentence and the glossary is searched per term instead of for the whole
sentence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		s, err := newSession(ctx, detectTerms || cfg.Translation.DetectTerms)
		if err != nil {
			return err
		}
		defer s.close()

		if len(args) > 0 {
			return translateOne(ctx, s, os.Stdout, strings.Join(args, " "))
		}
		return repl(ctx, s, os.Stdin, os.Stdout)
	},
}

func repl(ctx context.Context, s *session, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "glosstran: %d glossary terms, %s → %s. Type exit to quit.\n",
		s.glossary.Len(), s.orch.Config().SourceLang, s.orch.Config().TargetLang)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitWords[strings.ToLower(line)] {
			return nil
		}
		// A failed sentence does not end the session.
		if err := translateOne(ctx, s, out, line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func translateOne(ctx context.Context, s *session, out io.Writer, text string) error {
	t := cfg.Translation
	cacheOn := useCache || t.UseCache

	if cacheOn {
		cached, found, err := s.db.GetCachedTranslation(ctx, text, t.SourceLang, t.TargetLang)
		if err != nil {
			slog.Warn("translation memory lookup failed", "err", err)
		} else if found {
			fmt.Fprintln(os.Stderr, "Using cached translation")
			printResult(out, cached)
			return nil
		}
	}

	req := internal.TranslationRequest{
		ID:         uuid.NewString(),
		SourceText: text,
		SourceLang: t.SourceLang,
		TargetLang: t.TargetLang,
		Timestamp:  time.Now(),
	}

	start := time.Now()
	res, err := s.orch.Run(ctx, text)
	latency := time.Since(start)

	if res != nil {
		printWarnings(os.Stderr, res.Warnings)
	}
	record(ctx, s, req, res, latency, err)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	printResult(out, res)
	if cacheOn {
		if err := s.db.SaveToMemory(ctx, t.SourceLang, t.TargetLang, res); err != nil {
			slog.Warn("failed to save translation memory", "err", err)
		}
	}
	return nil
}

// record stores the request and its outcome in the history tables. Storage
// errors are logged and never fail the translation.
func record(ctx context.Context, s *session, req internal.TranslationRequest, res *internal.TranslationResult, latency time.Duration, runErr error) {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if res != nil {
		req.Detected = res.Detected
	}
	if err := s.db.SaveRequest(ctx, req); err != nil {
		slog.Warn("failed to save request", "err", err)
		return
	}
	if err := s.db.SaveResult(ctx, req.ID, res, latency, errMsg); err != nil {
		slog.Warn("failed to save result", "err", err)
	}
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.PersistentFlags().BoolVar(&detectTerms, "detect-terms", false, "Extract domain terms with the model before matching")
	translateCmd.PersistentFlags().BoolVar(&useCache, "cache", false, "Reuse and store translations in translation memory")
}
