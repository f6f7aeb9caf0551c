package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/ai"
	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
	"github.com/xxxsen/supportrag/internal/ticket"
)

// AddTicket stores a summary of a solved ticket in the tickets corpus.
func (s *IngestService) AddTicket(ctx context.Context, in *model.TicketInput) (*model.TicketChunk, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("ticket_id", in.TicketID))
	if strings.TrimSpace(in.TicketID) == "" || strings.TrimSpace(in.DeviceType) == "" {
		return nil, fmt.Errorf("ticket id and device type are required: %w", appErr.ErrValidation)
	}
	if n, err := s.tickets.CountByTicketID(ctx, in.TicketID); err != nil {
		return nil, err
	} else if n > 0 {
		logger.Warn("ticket already stored", zap.Int("rows", n))
	}
	description, err := ticket.Process(in.Description, true)
	if err != nil {
		logger.Info("ticket description rejected", zap.Error(err))
		return nil, err
	}
	summary, err := s.summarizer.SummarizeTicket(ctx, ticketDigest(description, in))
	if err != nil {
		logger.Error("summarize ticket failed", zap.Error(err))
		return nil, err
	}
	if len(in.SpareParts) > 0 {
		summary = summary + "\nSpare Parts used:\n" + strings.Join(in.SpareParts, "\n")
	}
	summary = strings.TrimSpace(summary)
	vec, err := s.embedder.Embed(ctx, summary, ai.TaskRetrievalDocument)
	if err != nil {
		logger.Error("embed ticket failed", zap.Error(err))
		return nil, err
	}
	row := &model.TicketChunk{
		Chunk:      summary,
		Embedding:  vec,
		DeviceType: in.DeviceType,
		TicketID:   in.TicketID,
	}
	if err := s.tickets.BulkInsert(ctx, []*model.TicketChunk{row}); err != nil {
		logger.Error("insert ticket failed", zap.Error(err))
		return nil, err
	}
	logger.Info("ticket added", zap.Int("summary_len", len(summary)))
	return row, nil
}

func ticketDigest(description string, in *model.TicketInput) string {
	var sb strings.Builder
	sb.WriteString("Description:\n")
	sb.WriteString(description)
	sb.WriteString("\n\nWorknote:\n")
	sb.WriteString(strings.TrimSpace(in.Worknote))
	sb.WriteString("\n\nSuccessful?:\n")
	sb.WriteString(strconv.FormatBool(in.Success))
	sb.WriteString("\n\nRemote fix?:\n")
	sb.WriteString(strconv.FormatBool(in.RemoteFix))
	return sb.String()
}
