// Package orchestrator runs one grounded translation: match glossary terms,
// render them into the prompt, call the generator once and verify which
// renderings the translation used.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valpere/glosstran/internal"
	"github.com/valpere/glosstran/internal/generator"
	"github.com/valpere/glosstran/internal/matcher"
	"github.com/valpere/glosstran/internal/postprocess"
	"github.com/valpere/glosstran/internal/verifier"
)

// ErrEmptyQuery is returned by Translate for a blank query; no generation
// call is made.
var ErrEmptyQuery = errors.New("empty query")

// NoMatches is the context line sent when no glossary term matched.
const NoMatches = "(no matching terms)"

type Config struct {
	// Domain qualifies the translator persona, e.g. "Buddhist".
	Domain string
	// SourceLang and TargetLang are language names used in the prompt.
	SourceLang string
	TargetLang string
	// TargetCode is the ISO 639-1 code handed to the validator.
	TargetCode string

	TopK       int
	DetectTopK int

	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

func (c Config) withDefaults() Config {
	if c.SourceLang == "" {
		c.SourceLang = "Chinese"
	}
	if c.TargetLang == "" {
		c.TargetLang = "English"
	}
	if c.TopK <= 0 {
		c.TopK = matcher.DefaultTopK
	}
	if c.DetectTopK <= 0 {
		c.DetectTopK = matcher.DefaultDetectTopK
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return c
}

// Matcher is satisfied by *matcher.Matcher.
type Matcher interface {
	Match(ctx context.Context, query string, topK int) matcher.Result
}

// TermDetector is satisfied by *termdetect.Detector.
type TermDetector interface {
	Detect(ctx context.Context, query string) ([]string, error)
}

// Validator is satisfied by *validator.Validator.
type Validator interface {
	Check(translation, targetLang string) error
}

type Option func(*Orchestrator)

// WithTermDetector enables the detect-then-match flow of Run.
func WithTermDetector(d TermDetector) Option {
	return func(o *Orchestrator) { o.detector = d }
}

// WithValidator adds a target-language check to every translation.
func WithValidator(v Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// Orchestrator holds no per-call state and is safe for concurrent use.
type Orchestrator struct {
	matcher   Matcher
	gen       generator.Generator
	config    Config
	detector  TermDetector
	validator Validator
}

func New(m Matcher, gen generator.Generator, config Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		matcher: m,
		gen:     gen,
		config:  config.withDefaults(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.config }

// Run translates query, detecting its terms first when a TermDetector is
// configured. A detection failure is a warning: the whole query is matched
// instead.
func (o *Orchestrator) Run(ctx context.Context, query string) (*internal.TranslationResult, error) {
	if o.detector == nil || strings.TrimSpace(query) == "" {
		return o.Translate(ctx, query, nil)
	}

	detected, err := o.detector.Detect(ctx, query)
	if err != nil {
		slog.Warn("term detection failed, matching whole query", "err", err)
		res, terr := o.Translate(ctx, query, nil)
		if res != nil {
			res.Warnings = append([]error{err}, res.Warnings...)
		}
		return res, terr
	}
	if len(detected) > 0 {
		slog.Debug("detected terms", "terms", detected)
	}
	return o.Translate(ctx, query, detected)
}

// Translate produces a grounded translation of query. With detected terms
// each term is matched on its own with the smaller per-term top-k; otherwise
// the whole query is matched. Only a generation failure is an error; the
// result is then returned as well, without a translation.
func (o *Orchestrator) Translate(ctx context.Context, query string, detected []string) (*internal.TranslationResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	res := &internal.TranslationResult{Query: query, Detected: cleanTerms(detected)}
	res.Matches, res.Warnings = o.match(ctx, query, res.Detected)
	res.Context = BuildContext(res.Matches)

	translation, err := o.generate(ctx, o.BuildMessages(query, res.Context))
	if err != nil {
		return res, err
	}
	res.Translation = translation
	res.UsageFlags = verifier.Verify(translation, res.Matches)

	if o.validator != nil {
		if err := o.validator.Check(translation, o.config.TargetCode); err != nil {
			slog.Warn("translation failed language check", "err", err)
			res.Warnings = append(res.Warnings, err)
		}
	}
	return res, nil
}

// cleanTerms trims detected terms and drops blank ones.
func cleanTerms(detected []string) []string {
	var terms []string
	for _, t := range detected {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func (o *Orchestrator) match(ctx context.Context, query string, terms []string) ([]internal.MatchCandidate, []error) {
	if len(terms) == 0 {
		r := o.matcher.Match(ctx, query, o.config.TopK)
		return r.Candidates, r.Warnings
	}

	var (
		out      []internal.MatchCandidate
		warnings []error
		seen     = make(map[string]bool)
	)
	for _, term := range terms {
		r := o.matcher.Match(ctx, term, o.config.DetectTopK)
		warnings = append(warnings, r.Warnings...)
		for _, c := range r.Candidates {
			if !seen[c.KeyTerm] {
				seen[c.KeyTerm] = true
				out = append(out, c)
			}
		}
	}
	matcher.Rank(out)
	return out, warnings
}

// BuildContext renders one "key → rendering (field)" line per match.
func BuildContext(matches []internal.MatchCandidate) string {
	if len(matches) == 0 {
		return NoMatches
	}
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("%s → %s (%s)", m.KeyTerm, m.SelectedTranslation, m.SourceField)
	}
	return strings.Join(lines, "\n")
}

// BuildMessages renders the system persona and the grounded user prompt.
func (o *Orchestrator) BuildMessages(query, glossaryContext string) []generator.Message {
	persona := "You are a professional translator."
	if d := strings.TrimSpace(o.config.Domain); d != "" {
		persona = fmt.Sprintf("You are a professional %s translator.", d)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following %s sentence into %s, ", o.config.SourceLang, o.config.TargetLang)
	b.WriteString("strictly following the renderings in the glossary below.\n")
	b.WriteString("If the sentence contains a term listed in the glossary, translate it exactly as the glossary says.\n\n")
	fmt.Fprintf(&b, "Glossary:\n%s\n\n", glossaryContext)
	fmt.Fprintf(&b, "Sentence to translate:\n%s\n\n", query)
	fmt.Fprintf(&b, "Output only a faithful, natural and professional %s translation.", o.config.TargetLang)

	return []generator.Message{
		{Role: generator.RoleSystem, Content: persona},
		{Role: generator.RoleUser, Content: b.String()},
	}
}

// generate makes up to MaxAttempts calls, each bounded by Timeout.
func (o *Orchestrator) generate(ctx context.Context, msgs []generator.Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			slog.Warn("retrying generation", "attempt", attempt, "err", lastErr)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", generator.ErrGeneration, ctx.Err())
			case <-time.After(o.config.RetryDelay):
			}
		}

		out, err := o.generateOnce(ctx, msgs)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (o *Orchestrator) generateOnce(ctx context.Context, msgs []generator.Message) (string, error) {
	callCtx := ctx
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	out, err := o.gen.Generate(callCtx, msgs)
	if err != nil {
		if errors.Is(err, generator.ErrGeneration) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %v", generator.ErrGeneration, o.gen.Name(), err)
	}

	out = strings.TrimSpace(postprocess.Clean(out))
	if out == "" {
		return "", fmt.Errorf("%w: %s returned an empty translation", generator.ErrGeneration, o.gen.Name())
	}
	return out, nil
}
