package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

const (
	FormatPDF      = "pdf"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Parser turns raw bytes into a structural element stream.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, name string) (*model.Document, error)
}

type Factory func() Parser

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
	extensions = map[string]string{
		".pdf":      FormatPDF,
		".md":       FormatMarkdown,
		".markdown": FormatMarkdown,
		".html":     FormatHTML,
		".htm":      FormatHTML,
	}
)

func Register(format string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(format))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// FormatOf guesses the format from a file name or url.
func FormatOf(name string) (string, error) {
	clean := name
	if idx := strings.IndexAny(clean, "?#"); idx >= 0 {
		clean = clean[:idx]
	}
	ext := strings.ToLower(path.Ext(clean))
	format, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported document %q: %w", name, appErr.ErrInputFormat)
	}
	return format, nil
}

func New(format string) (Parser, error) {
	key := strings.ToLower(strings.TrimSpace(format))
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported document format %q: %w", format, appErr.ErrInputFormat)
	}
	return factory(), nil
}

func inputError(format string, err error) error {
	return fmt.Errorf("parse %s: %w: %w", format, appErr.ErrInputFormat, err)
}
