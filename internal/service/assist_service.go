package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
	"github.com/xxxsen/supportrag/internal/ticket"
)

type AssistService struct {
	ai        TicketAI
	retrieval *RetrievalService
}

func NewAssistService(ai TicketAI, retrieval *RetrievalService) *AssistService {
	return &AssistService{ai: ai, retrieval: retrieval}
}

// ProcessTicket answers a new ticket with the help of similar tickets and
// the manuals of its device type.
func (s *AssistService) ProcessTicket(ctx context.Context, description, deviceType string) (*model.AssistResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("device_type", deviceType))
	cleaned, err := ticket.Process(description, false)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cleaned) == "" {
		return nil, fmt.Errorf("description is required: %w", appErr.ErrValidation)
	}
	query, err := s.ai.QueryString(ctx, cleaned)
	if err != nil {
		logger.Error("build query string failed", zap.Error(err))
		return nil, err
	}
	retrieved, err := s.retrieval.Retrieve(ctx, query.QueryString, deviceType)
	if err != nil {
		return nil, err
	}
	answer, err := s.ai.Answer(ctx, cleaned, references(retrieved))
	if err != nil {
		logger.Error("answer ticket failed", zap.Error(err))
		return nil, err
	}
	return &model.AssistResult{
		Answer: answer,
		Summary: model.AssistSummary{
			Description: query.Description,
			QueryString: query.QueryString,
		},
		Context: assistContext(retrieved),
	}, nil
}

func references(r *model.RetrievalResult) []string {
	out := make([]string, 0, len(r.Tickets)+len(r.Manuals))
	for _, t := range r.Tickets {
		out = append(out, fmt.Sprintf("Ticket %s:\n%s", t.TicketID, t.Chunk))
	}
	for _, m := range r.Manuals {
		if m.PageNumber > 0 {
			out = append(out, fmt.Sprintf("Manual %s (page %d):\n%s", m.URL, m.PageNumber, m.Chunk))
			continue
		}
		out = append(out, fmt.Sprintf("Manual %s:\n%s", m.URL, m.Chunk))
	}
	return out
}

func assistContext(r *model.RetrievalResult) model.AssistContext {
	c := model.AssistContext{
		Tickets: make([]string, 0, len(r.Tickets)),
		Manuals: make([]model.ManualReference, 0, len(r.Manuals)),
	}
	for _, t := range r.Tickets {
		c.Tickets = append(c.Tickets, t.TicketID)
	}
	for _, m := range r.Manuals {
		c.Manuals = append(c.Manuals, model.ManualReference{
			ID:         m.ID,
			URL:        m.URL,
			PageNumber: m.PageNumber,
			DocType:    m.DocType,
		})
	}
	return c
}
