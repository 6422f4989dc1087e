// Package glossary holds the immutable set of glossary terms and the two
// retrieval primitives the matcher builds on: exact lookup by key term and
// nearest-neighbour search over pre-computed embeddings.
package glossary

import "strings"

// Source fields, in precedence order, plus the tag used for entries whose
// embedding could not be computed.
const (
	FieldPrimary         = "en"
	FieldAlternate       = "en_v"
	FieldTransliteration = "pali_sanskrit"
	FieldTerm            = "zh"
	FieldError           = "error"
)

// Record is one raw glossary row before selection and embedding.
type Record struct {
	Term            string
	Primary         string
	Alternate       string
	Transliteration string
}

// Entry is a glossary term ready for retrieval. Entries are built once and
// never mutated afterwards.
type Entry struct {
	KeyTerm string
	// Candidates lists the non-empty renderings in precedence order.
	Candidates  []string
	Selected    string
	SourceField string
	Embedding   []float32
	// Degraded is set when embedding failed and Embedding is a zero vector.
	Degraded bool
}

// Select applies the rendering precedence: primary, alternate,
// transliteration, then the term itself. Values are whitespace-trimmed and
// the first non-empty one wins.
func Select(rec Record) (text, field string) {
	switch {
	case strings.TrimSpace(rec.Primary) != "":
		return strings.TrimSpace(rec.Primary), FieldPrimary
	case strings.TrimSpace(rec.Alternate) != "":
		return strings.TrimSpace(rec.Alternate), FieldAlternate
	case strings.TrimSpace(rec.Transliteration) != "":
		return strings.TrimSpace(rec.Transliteration), FieldTransliteration
	default:
		return strings.TrimSpace(rec.Term), FieldTerm
	}
}

// NewEntry builds an entry without an embedding.
func NewEntry(rec Record) Entry {
	selected, field := Select(rec)

	var candidates []string
	for _, v := range []string{rec.Primary, rec.Alternate, rec.Transliteration, rec.Term} {
		if v = strings.TrimSpace(v); v != "" {
			candidates = append(candidates, v)
		}
	}

	return Entry{
		KeyTerm:     strings.TrimSpace(rec.Term),
		Candidates:  candidates,
		Selected:    selected,
		SourceField: field,
	}
}
