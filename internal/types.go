package internal

import "time"

// Retrieval strategies recorded on a MatchCandidate.
const (
	StrategyExact  = "exact"
	StrategyVector = "vector"
)

type TranslationRequest struct {
	ID         string    `json:"id"`
	SourceText string    `json:"source_text"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Detected   []string  `json:"detected,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// MatchCandidate is a glossary term judged relevant to a query. Distance is
// 0 for exact lexical hits; vector hits carry the index's native metric.
type MatchCandidate struct {
	KeyTerm             string  `json:"key_term"`
	SelectedTranslation string  `json:"selected_translation"`
	SourceField         string  `json:"source_field"`
	Distance            float64 `json:"distance"`
	Strategy            string  `json:"strategy"`
}

// TranslationResult is the value returned by one grounded translation call.
// UsageFlags[i] reports whether Matches[i]'s rendering appears in Translation.
// Detected lists the terms matched one by one, empty when the whole query was
// matched.
type TranslationResult struct {
	Query       string           `json:"query"`
	Translation string           `json:"translation"`
	Matches     []MatchCandidate `json:"matches"`
	UsageFlags  []bool           `json:"usage_flags"`
	Detected    []string         `json:"detected,omitempty"`
	Context     string           `json:"-"`
	Warnings    []error          `json:"-"`
}

// Used reports how many matches were honoured by the translation.
func (r *TranslationResult) Used() int {
	n := 0
	for _, u := range r.UsageFlags {
		if u {
			n++
		}
	}
	return n
}
