package glossary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Columns names the four required CSV header fields.
type Columns struct {
	Term            string `mapstructure:"term"`
	Primary         string `mapstructure:"primary"`
	Alternate       string `mapstructure:"alternate"`
	Transliteration string `mapstructure:"transliteration"`
}

// DefaultColumns matches the Chinese/English/Pali glossary layout.
var DefaultColumns = Columns{
	Term:            FieldTerm,
	Primary:         FieldPrimary,
	Alternate:       FieldAlternate,
	Transliteration: FieldTransliteration,
}

func (c Columns) names() []string {
	return []string{c.Term, c.Primary, c.Alternate, c.Transliteration}
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path string, cols Columns) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open glossary: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, cols)
}

// ReadCSV parses a glossary table. A header lacking any of the four columns
// fails the whole load with ErrConfiguration; rows without a term are skipped.
func ReadCSV(r io.Reader, cols Columns) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: glossary is empty", ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	var missing []string
	for _, name := range cols.names() {
		if _, ok := pos[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: glossary is missing columns %v", ErrConfiguration, missing)
	}

	cell := func(row []string, name string) string {
		i := pos[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read glossary line %d: %w", line, err)
		}

		rec := Record{
			Term:            cell(row, cols.Term),
			Primary:         cell(row, cols.Primary),
			Alternate:       cell(row, cols.Alternate),
			Transliteration: cell(row, cols.Transliteration),
		}
		if rec.Term == "" {
			slog.Warn("skipping glossary row without a term", "line", line)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
