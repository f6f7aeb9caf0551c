package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

type ollamaConfig struct {
	ServerURL string `json:"server_url"`
}

// ollamaProvider serves local models. Embedding dimensions are fixed by the
// model and cannot be requested.
type ollamaProvider struct {
	serverURL string
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) newLLM(model string) (*ollama.LLM, error) {
	return ollama.New(ollama.WithModel(model), ollama.WithServerURL(p.serverURL))
}

func (p *ollamaProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	llm, err := p.newLLM(model)
	if err != nil {
		return "", fmt.Errorf("ollama client: %w", err)
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (p *ollamaProvider) Embed(ctx context.Context, model string, text string, taskType string, dimensions int) ([]float32, error) {
	llm, err := p.newLLM(model)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	vectors, err := emb.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}
	return vectors[0], nil
}

func createOllamaProvider(args interface{}) (*ollamaProvider, error) {
	cfg := &ollamaConfig{}
	if args != nil {
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
	}
	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}
	return &ollamaProvider{serverURL: serverURL}, nil
}

func init() {
	Register("ollama", func(args interface{}) (IAIProvider, error) {
		return createOllamaProvider(args)
	})
	RegisterEmbed("ollama", func(args interface{}) (IEmbedProvider, error) {
		return createOllamaProvider(args)
	})
}
