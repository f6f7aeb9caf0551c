package service

import (
	"context"

	"github.com/xxxsen/supportrag/internal/ai"
	"github.com/xxxsen/supportrag/internal/model"
)

type ManualWriter interface {
	BulkInsert(ctx context.Context, chunks []*model.ManualChunk) error
	CountByURL(ctx context.Context, url string) (int, error)
}

type TicketWriter interface {
	BulkInsert(ctx context.Context, chunks []*model.TicketChunk) error
	CountByTicketID(ctx context.Context, ticketID string) (int, error)
}

type Searcher interface {
	SearchManuals(ctx context.Context, query string, embedding []float32, deviceType string) ([]*model.ManualResult, error)
	SearchTickets(ctx context.Context, query string, embedding []float32) ([]*model.TicketResult, error)
}

// TicketAI is the generator side of *ai.Manager.
type TicketAI interface {
	QueryString(ctx context.Context, description string) (*ai.TicketQuery, error)
	SummarizeTicket(ctx context.Context, description string) (string, error)
	Answer(ctx context.Context, description string, references []string) (string, error)
}
