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
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/glosstran/internal/glossary"
	"github.com/valpere/glosstran/internal/store"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Inspect the embedded glossary",
	Long: `List, look up, and summarise the glossary stored by "glosstran embed".

Glossary entries pin each source term to one rendering so that the same
term is always translated the same way.`,
}

var glossaryListLimit int

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		gs, _, err := loadStoredGlossary()
		if err != nil {
			return err
		}

		entries := gs.Entries()
		if glossaryListLimit > 0 && len(entries) > glossaryListLimit {
			entries = entries[:glossaryListLimit]
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TERM\tRENDERING\tFIELD\tDEGRADED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", e.KeyTerm, e.Selected, e.SourceField, e.Degraded)
		}
		return w.Flush()
	},
}

var glossaryLookupCmd = &cobra.Command{
	Use:   "lookup <term>",
	Short: "Show the entry for a key term",
	Long: `Look up a key term exactly. When the term is not in the glossary, the
closest key terms are suggested.

Example:
  glosstran glossary lookup 无常`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gs, _, err := loadStoredGlossary()
		if err != nil {
			return err
		}

		term := strings.TrimSpace(args[0])
		entries, err := gs.Exact(term)
		if err != nil && !errors.Is(err, glossary.ErrAmbiguousLookup) {
			return err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		if len(entries) == 0 {
			fmt.Printf("No entry for %q.\n", term)
			if sugg := gs.Suggest(term, 5); len(sugg) > 0 {
				fmt.Printf("Did you mean: %s\n", strings.Join(sugg, ", "))
			}
			return nil
		}

		for _, e := range entries {
			fmt.Printf("Term:       %s\n", e.KeyTerm)
			fmt.Printf("Rendering:  %s (%s)\n", e.Selected, e.SourceField)
			fmt.Printf("Candidates: %s\n", strings.Join(e.Candidates, " | "))
			if e.Degraded {
				fmt.Println("Embedding:  missing, exact matching only")
			}
		}
		return nil
	},
}

var glossaryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show glossary build statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		gs, meta, err := loadStoredGlossary()
		if err != nil {
			return err
		}

		fmt.Printf("Source:      %s\n", meta.Source)
		fmt.Printf("Model:       %s\n", meta.Model)
		fmt.Printf("Dimensions:  %d\n", meta.Dimensions)
		fmt.Printf("Entries:     %d\n", gs.Len())
		fmt.Printf("Degraded:    %d\n", gs.Degraded())
		fmt.Printf("Built at:    %s\n", meta.BuiltAt.Format("2006-01-02 15:04"))

		stats := glossary.BuildStats{Total: gs.Len(), Failed: gs.Degraded(), BySource: make(map[string]int)}
		for _, e := range gs.Entries() {
			stats.BySource[e.SourceField]++
		}
		fmt.Println()
		printBuildStats(stats)
		return nil
	},
}

// loadStoredGlossary reads the glossary without attaching a vector index.
func loadStoredGlossary() (*glossary.Store, store.GlossaryMeta, error) {
	db, err := openStore()
	if err != nil {
		return nil, store.GlossaryMeta{}, err
	}
	defer db.Close()

	meta, entries, err := db.LoadGlossary(context.Background())
	if err != nil {
		if errors.Is(err, store.ErrNoGlossary) {
			return nil, meta, fmt.Errorf("%w: run \"glosstran embed\" first", err)
		}
		return nil, meta, fmt.Errorf("failed to load glossary: %w", err)
	}
	gs, err := glossary.NewStore(entries, nil)
	return gs, meta, err
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryListCmd.Flags().IntVarP(&glossaryListLimit, "limit", "n", 0, "Show at most n entries (0 = all)")

	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryLookupCmd)
	glossaryCmd.AddCommand(glossaryStatsCmd)
}
