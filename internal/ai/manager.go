package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type ManagerConfig struct {
	Timeout int
}

// TicketQuery is what the generator extracts from a new ticket.
type TicketQuery struct {
	Description string `json:"description"`
	QueryString string `json:"query_string"`
}

type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{
		generator: generator,
		embedder:  embedder,
		cfg:       cfg,
	}
}

// Embed makes the manager usable as the pipeline embedder, bounded by the
// same timeout as generation.
func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured: %w", ErrUnavailable)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.embedder.Embed(ctx, text, taskType)
}

func (m *Manager) ModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) QueryString(ctx context.Context, description string) (*TicketQuery, error) {
	prompt := fmt.Sprintf(`You are a support technician assistant.
Read the ticket below and answer with a JSON object only, using this format:
{"description": "A concise summary of the problem. Approximately 2 sentences.", "query_string": "A query string for the vector database constructed from relevant keywords."}

TICKET:
%s`, description)
	out, err := m.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseTicketQuery(out)
}

func (m *Manager) SummarizeTicket(ctx context.Context, description string) (string, error) {
	prompt := fmt.Sprintf(`You are a support technician assistant.
Summarize the following repair ticket: the reported problem, the diagnosis and the fix that was applied.
- Keep device names, error codes and part numbers.
- Output ONLY the summary text.

TICKET:
%s`, description)
	return m.generateText(ctx, prompt)
}

func (m *Manager) Answer(ctx context.Context, description string, references []string) (string, error) {
	prompt := fmt.Sprintf(`You are a support technician assistant.
Suggest how to resolve the problem described below. Use the reference material when it is relevant and say so when it is not.
- Be concise and practical.

PROBLEM:
%s

REFERENCES:
%s`, description, strings.Join(references, "\n---\n"))
	return m.generateText(ctx, prompt)
}

func (m *Manager) generateText(ctx context.Context, prompt string) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("generator not configured: %w", ErrUnavailable)
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	resp, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
}

var jsonFenceRegex = regexp.MustCompile("(?s)```json(.*?)```")

func parseTicketQuery(output string) (*TicketQuery, error) {
	clean := strings.TrimSpace(output)
	if m := jsonFenceRegex.FindStringSubmatch(clean); m != nil {
		clean = strings.TrimSpace(m[1])
	}
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	var q TicketQuery
	if err := json.Unmarshal([]byte(clean), &q); err != nil {
		return nil, fmt.Errorf("parse ticket query: %w", err)
	}
	q.Description = strings.TrimSpace(q.Description)
	q.QueryString = strings.TrimSpace(q.QueryString)
	if q.QueryString == "" {
		return nil, fmt.Errorf("ticket query has no query_string")
	}
	return &q, nil
}
