// Package termdetect asks the chat model which domain terms a sentence
// contains, so that the matcher can look each one up separately.
package termdetect

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/glosstran/internal/generator"
	"github.com/valpere/glosstran/internal/postprocess"
)

type Detector struct {
	gen        generator.Generator
	domain     string
	sourceLang string
}

// New returns a detector for terms of domain (e.g. "Buddhist") written in
// sourceLang (e.g. "Chinese").
func New(gen generator.Generator, domain, sourceLang string) *Detector {
	return &Detector{gen: gen, domain: domain, sourceLang: sourceLang}
}

// Messages renders the extraction prompt for query.
func (d *Detector) Messages(query string) []generator.Message {
	domain := strings.TrimSpace(d.domain + " terminology")
	terms := strings.TrimSpace(d.domain + " terms")
	return []generator.Message{
		{Role: generator.RoleSystem, Content: fmt.Sprintf("You are a %s extraction assistant.", domain)},
		{Role: generator.RoleUser, Content: fmt.Sprintf(
			"List the %s that appear in the following sentence. "+
				"Reply with the %s terms only, separated by spaces, without explanations.\n%s",
			terms, d.sourceLang, query)},
	}
}

// Detect returns the distinct terms the model reported, in reply order. An
// empty slice means the model found nothing.
func (d *Detector) Detect(ctx context.Context, query string) ([]string, error) {
	out, err := d.gen.Generate(ctx, d.Messages(query))
	if err != nil {
		return nil, fmt.Errorf("term detection failed: %w", err)
	}
	return postprocess.SplitTerms(out), nil
}
