// Package validator checks that a translation is written in the target
// language. A failed check is a soft warning, never a translation failure.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/glosstran/internal/detector"
)

// ErrLanguageMismatch is returned when the detected language differs from
// the target.
var ErrLanguageMismatch = errors.New("translation language mismatch")

// minValidationLength is the rune count below which detection is unreliable
// and the check passes.
const minValidationLength = 20

type Validator struct {
	det *detector.Detector
}

// New restricts detection to the source and target languages of a session.
func New(sourceLang, targetLang string) *Validator {
	return &Validator{det: detector.New(sourceLang, targetLang)}
}

// NewWithDetector reuses an existing detector.
func NewWithDetector(det *detector.Detector) *Validator {
	return &Validator{det: det}
}

// Check returns nil when translation appears to be in targetLang, when the
// text is too short to judge, or when the language is ambiguous.
func (v *Validator) Check(translation, targetLang string) error {
	if targetLang == "" {
		return nil
	}

	text := strings.TrimSpace(translation)
	if text == "" {
		return fmt.Errorf("%w: translation is empty", ErrLanguageMismatch)
	}
	if len([]rune(text)) < minValidationLength {
		return nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return nil
	}
	if !strings.EqualFold(detected, targetLang) {
		return fmt.Errorf("%w: expected %s but detected %s", ErrLanguageMismatch, targetLang, detected)
	}
	return nil
}
