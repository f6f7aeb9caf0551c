package ai

import (
	"fmt"
	"strings"

	"github.com/xxxsen/supportrag/internal/config"
)

// BuildGenerator creates a fallback group from the configured generators in order.
func BuildGenerator(items []config.ProviderConfig) (IGenerator, error) {
	entries := make([]GeneratorEntry, 0, len(items))
	for _, item := range items {
		provider, err := NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init generator %s: %w", entryName(item), err)
		}
		entries = append(entries, GeneratorEntry{
			Name:      entryName(item),
			Generator: NewGenerator(provider, item.Model),
		})
	}
	return NewGroupGenerator(entries), nil
}

func BuildEmbedder(items []config.ProviderConfig, dimensions int) (IEmbedder, error) {
	entries := make([]EmbedderEntry, 0, len(items))
	for _, item := range items {
		provider, err := NewEmbedProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init embedder %s: %w", entryName(item), err)
		}
		entries = append(entries, EmbedderEntry{
			Name:     entryName(item),
			Embedder: NewEmbedder(provider, item.Model, dimensions),
		})
	}
	return NewGroupEmbedder(entries), nil
}

func entryName(item config.ProviderConfig) string {
	if name := strings.TrimSpace(item.Name); name != "" {
		return name
	}
	return item.Provider + "/" + item.Model
}
