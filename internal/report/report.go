// Package report renders batch translation results as plain text blocks,
// Markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/valpere/glosstran/internal/orchestrator"
)

// Rule separates the blocks of a plain-text report.
var Rule = strings.Repeat("-", 50)

type Meta struct {
	Title      string
	Input      string
	Model      string
	SourceLang string
	TargetLang string
	Generated  time.Time
}

// WriteText writes one block per item: source, translation and the
// reference terms, followed by a dashed rule. Blocks are separated by a
// blank line.
func WriteText(w io.Writer, items []orchestrator.BatchItem) error {
	for i, it := range items {
		if i > 0 {
			if _, err := io.WriteString(w, "\n\n"); err != nil {
				return err
			}
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Source: %s\n", it.Query)
		if it.Err != nil {
			fmt.Fprintf(&b, "Error: %v\n", it.Err)
		} else {
			fmt.Fprintf(&b, "Translation: %s\n", it.Result.Translation)
		}
		fmt.Fprintf(&b, "Reference terms: %s\n%s", referenceTerms(it), Rule)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func referenceTerms(it orchestrator.BatchItem) string {
	if it.Result == nil || len(it.Result.Matches) == 0 {
		return orchestrator.NoMatches
	}
	terms := make([]string, len(it.Result.Matches))
	for i, m := range it.Result.Matches {
		terms[i] = fmt.Sprintf("%s → %s", m.KeyTerm, m.SelectedTranslation)
	}
	return strings.Join(terms, "; ")
}

// Markdown renders a summary followed by one section per item with its
// term usage table.
func Markdown(items []orchestrator.BatchItem, meta Meta) []byte {
	var b bytes.Buffer

	title := meta.Title
	if title == "" {
		title = "Translation report"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if meta.Input != "" {
		fmt.Fprintf(&b, "- Input: `%s`\n", meta.Input)
	}
	if meta.Model != "" {
		fmt.Fprintf(&b, "- Model: `%s`\n", meta.Model)
	}
	if meta.SourceLang != "" || meta.TargetLang != "" {
		fmt.Fprintf(&b, "- Languages: %s → %s\n", meta.SourceLang, meta.TargetLang)
	}
	if !meta.Generated.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", meta.Generated.Format(time.RFC3339))
	}

	used, total := 0, 0
	for _, it := range items {
		if it.Result != nil {
			used += it.Result.Used()
			total += len(it.Result.UsageFlags)
		}
	}
	fmt.Fprintf(&b, "- Lines: %d (%d failed)\n", len(items), orchestrator.Failed(items))
	fmt.Fprintf(&b, "- Glossary terms used: %d of %d\n\n", used, total)

	for _, it := range items {
		fmt.Fprintf(&b, "## %d\n\n", it.Index+1)
		fmt.Fprintf(&b, "> %s\n\n", escape(it.Query))
		if it.Err != nil {
			fmt.Fprintf(&b, "**Error:** %s\n\n", escape(it.Err.Error()))
		} else {
			fmt.Fprintf(&b, "%s\n\n", escape(it.Result.Translation))
		}
		if it.Result == nil || len(it.Result.Matches) == 0 {
			continue
		}

		b.WriteString("| Term | Rendering | Source | Distance | Used |\n")
		b.WriteString("|---|---|---|---:|:---:|\n")
		for i, m := range it.Result.Matches {
			mark := ""
			if i < len(it.Result.UsageFlags) && it.Result.UsageFlags[i] {
				mark = "✓"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %.4f | %s |\n",
				escape(m.KeyTerm), escape(m.SelectedTranslation), m.SourceField, m.Distance, mark)
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

func ToHTML(md []byte) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.CompletePage,
		Title: "Translation report",
	}
	renderer := html.NewRenderer(opts)
	ext := parser.CommonExtensions | parser.Attributes
	p := parser.NewWithExtensions(ext)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

// WriteFile picks the format from the extension of path: .html/.htm for
// HTML, .md/.markdown for Markdown, anything else for plain text.
func WriteFile(path string, items []orchestrator.BatchItem, meta Meta) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		data = []byte(ToHTML(Markdown(items, meta)))
	case ".md", ".markdown":
		data = Markdown(items, meta)
	default:
		var b bytes.Buffer
		if err := WriteText(&b, items); err != nil {
			return err
		}
		data = b.Bytes()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

var mdEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func escape(s string) string { return mdEscaper.Replace(s) }
