package detect

import (
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

// LanguageDetector returns an ISO 639-1 code for text.
type LanguageDetector interface {
	Detect(text string) (string, error)
}

type whatlangDetector struct{}

func NewLanguageDetector() LanguageDetector {
	return whatlangDetector{}
}

func (whatlangDetector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty text: %w", appErr.ErrDetectionUncertain)
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", fmt.Errorf("unreliable result %s (%.2f): %w", info.Lang.Iso6391(), info.Confidence, appErr.ErrDetectionUncertain)
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", fmt.Errorf("unknown language: %w", appErr.ErrDetectionUncertain)
	}
	return code, nil
}

// baseLanguage reduces a tag like "en-US" to "en".
func baseLanguage(tag string) (string, error) {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", err
	}
	base, _ := parsed.Base()
	return base.String(), nil
}
