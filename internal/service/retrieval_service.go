package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/supportrag/internal/ai"
	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

type RetrievalService struct {
	store    Searcher
	embedder ai.IEmbedder
}

func NewRetrievalService(store Searcher, embedder ai.IEmbedder) *RetrievalService {
	return &RetrievalService{store: store, embedder: embedder}
}

// Retrieve embeds the query once and searches both corpora with it. Manuals
// are limited to deviceType, tickets are not.
func (s *RetrievalService) Retrieve(ctx context.Context, query, deviceType string) (*model.RetrievalResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("device_type", deviceType))
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", appErr.ErrValidation)
	}
	if strings.TrimSpace(deviceType) == "" {
		return nil, fmt.Errorf("device type is required: %w", appErr.ErrValidation)
	}
	vec, err := s.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		logger.Error("embed query failed", zap.Error(err))
		return nil, err
	}
	result := &model.RetrievalResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tickets, err := s.store.SearchTickets(gctx, query, vec)
		if err != nil {
			return err
		}
		result.Tickets = tickets
		return nil
	})
	g.Go(func() error {
		manuals, err := s.store.SearchManuals(gctx, query, vec, deviceType)
		if err != nil {
			return err
		}
		result.Manuals = manuals
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("retrieve context failed", zap.Error(err))
		return nil, err
	}
	logger.Debug("context retrieved",
		zap.Int("tickets", len(result.Tickets)),
		zap.Int("manuals", len(result.Manuals)),
	)
	return result, nil
}
