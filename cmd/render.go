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
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/valpere/glosstran/internal"
	"github.com/valpere/glosstran/internal/orchestrator"
)

var (
	usedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	unusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	termStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// usageLine renders one match as "term → rendering (field) ✓ [distance: 0.0000]".
func usageLine(m internal.MatchCandidate, used bool) string {
	mark := unusedStyle.Render("✗")
	if used {
		mark = usedStyle.Render("✓")
	}
	return fmt.Sprintf("%s → %s (%s) %s %s",
		termStyle.Render(m.KeyTerm), m.SelectedTranslation, m.SourceField, mark,
		dimStyle.Render(fmt.Sprintf("[distance: %.4f]", m.Distance)))
}

func printResult(w io.Writer, res *internal.TranslationResult) {
	fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Translation:"), res.Translation)
	fmt.Fprintln(w, headingStyle.Render("Reference terms:"))
	if len(res.Matches) == 0 {
		fmt.Fprintf(w, "  %s\n", orchestrator.NoMatches)
		return
	}
	for i, m := range res.Matches {
		fmt.Fprintf(w, "  %s\n", usageLine(m, i < len(res.UsageFlags) && res.UsageFlags[i]))
	}
	fmt.Fprintf(w, "  %s\n", dimStyle.Render(fmt.Sprintf("%d of %d terms used", res.Used(), len(res.Matches))))
}

func printWarnings(w io.Writer, warnings []error) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "Warning: %v\n", warn)
	}
}
