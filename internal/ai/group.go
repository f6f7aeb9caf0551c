package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

// groupGenerator tries each entry in order until one answers.
type groupGenerator struct {
	items []GeneratorEntry
}

func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	if len(items) == 0 {
		return nil
	}
	return &groupGenerator{items: items}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return inOrder(ctx, "generator", len(g.items), func(i int) (string, string, bool, error) {
		item := g.items[i]
		if item.Generator == nil {
			return "", item.Name, false, nil
		}
		res, err := item.Generator.Generate(ctx, prompt)
		return res, item.Name, true, err
	})
}

// groupEmbedder tries each entry in order. Entries should share a vector
// space, otherwise cached and stored vectors stop being comparable.
type groupEmbedder struct {
	items []EmbedderEntry
}

func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return inOrder(ctx, "embedder", len(g.items), func(i int) ([]float32, string, bool, error) {
		item := g.items[i]
		if item.Embedder == nil {
			return nil, item.Name, false, nil
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		return res, item.Name, true, err
	})
}

func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		names = append(names, item.Embedder.ModelName())
	}
	return strings.Join(names, "|")
}

// inOrder calls try for every entry until one succeeds. try reports false
// for entries that are not set up.
func inOrder[R any](ctx context.Context, kind string, n int, try func(i int) (R, string, bool, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	logger := logutil.GetLogger(ctx)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		res, name, ok, err := try(i)
		if !ok {
			continue
		}
		if err == nil {
			return res, nil
		}
		lastErr = err
		if errors.Is(err, ErrUnavailable) {
			logger.Debug(kind+" unavailable, trying next", zap.Int("index", i), zap.String("name", name))
			continue
		}
		logger.Warn(kind+" failed", zap.Int("index", i), zap.String("name", name), zap.Error(err))
	}
	if lastErr == nil {
		return zero, fmt.Errorf("%s not configured: %w", kind, ErrUnavailable)
	}
	return zero, lastErr
}
