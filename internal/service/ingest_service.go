package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/supportrag/internal/ai"
	"github.com/xxxsen/supportrag/internal/chunker"
	"github.com/xxxsen/supportrag/internal/config"
	"github.com/xxxsen/supportrag/internal/detect"
	"github.com/xxxsen/supportrag/internal/filestore"
	"github.com/xxxsen/supportrag/internal/linearize"
	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
	"github.com/xxxsen/supportrag/internal/source"
)

var relevantKeywords = []string{
	"maintenance", "repair", "troubleshooting", "service",
	"diagnostics", "troubleshoot",
}

type IngestService struct {
	cfg        config.IngestConfig
	manuals    ManualWriter
	tickets    TicketWriter
	embedder   ai.IEmbedder
	summarizer TicketAI
	files      filestore.Store
	detector   *detect.Detector
	linearizer *linearize.Linearizer
	chunker    *chunker.Chunker
	pool       *ants.Pool
}

// NewIngestService builds the ingestion pipeline. files may be nil, raw
// documents are not archived then.
func NewIngestService(cfg config.IngestConfig, manuals ManualWriter, tickets TicketWriter,
	embedder ai.IEmbedder, summarizer TicketAI, files filestore.Store) (*IngestService, error) {
	detector, err := detect.New(detect.WithTargetLanguage(cfg.TargetLanguage))
	if err != nil {
		return nil, fmt.Errorf("init page detector: %w", err)
	}
	size := cfg.WorkerPoolSize
	if size <= 0 {
		size = 4
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("init embedding pool: %w", err)
	}
	return &IngestService{
		cfg:        cfg,
		manuals:    manuals,
		tickets:    tickets,
		embedder:   embedder,
		summarizer: summarizer,
		files:      files,
		detector:   detector,
		linearizer: linearize.New(linearize.Options{IncludeTables: cfg.IncludeTables}),
		chunker:    chunker.New(chunker.Config{MaxLength: cfg.MaxChunkLength, Overlap: cfg.OverlapEnabled()}),
		pool:       pool,
	}, nil
}

// Release stops the embedding workers. The service must not be used afterwards.
func (s *IngestService) Release() {
	s.pool.Release()
}

// IsRelevant reports whether the manual metadata names maintenance or repair
// content in its content type or one of its categories.
func IsRelevant(in *model.ManualInput) bool {
	fields := append([]string{in.ContentType}, in.Categories...)
	for _, field := range fields {
		value := strings.ToLower(field)
		for _, keyword := range relevantKeywords {
			if strings.Contains(value, keyword) {
				return true
			}
		}
	}
	return false
}

func (s *IngestService) IngestManual(ctx context.Context, in *model.ManualInput) (*model.IngestReport, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("url", in.URL), zap.String("device_type", in.DeviceType))
	if strings.TrimSpace(in.URL) == "" || strings.TrimSpace(in.DeviceType) == "" {
		return nil, fmt.Errorf("url and device type are required: %w", appErr.ErrValidation)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("empty document: %w", appErr.ErrInputFormat)
	}
	if !in.Force && !IsRelevant(in) {
		logger.Info("skip irrelevant manual", zap.String("content_type", in.ContentType))
		return nil, fmt.Errorf("manual %s: %w", in.URL, appErr.ErrIrrelevant)
	}
	// chunks are never deduplicated, a second upload of a url adds rows
	previous, err := s.manuals.CountByURL(ctx, in.URL)
	if err != nil {
		return nil, err
	}
	if previous > 0 {
		logger.Warn("manual already ingested", zap.Int("chunks", previous))
	}
	format := in.Format
	if format == "" {
		f, err := source.FormatOf(in.URL)
		if err != nil {
			return nil, err
		}
		format = f
	}
	parser, err := source.New(format)
	if err != nil {
		return nil, err
	}
	report := &model.IngestReport{URL: in.URL, DocType: format}
	if s.files != nil {
		key := archiveKey(in, format)
		if err := s.files.Save(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data))); err != nil {
			logger.Error("archive manual failed", zap.String("key", key), zap.Error(err))
			return nil, fmt.Errorf("archive manual: %w", err)
		}
		report.ArchiveKey = key
	}
	doc, err := parser.Parse(ctx, bytes.NewReader(in.Data), in.URL)
	if err != nil {
		logger.Warn("parse manual failed", zap.Error(err))
		return nil, err
	}
	report.Pages = doc.PageCount()

	excluded := model.NewPageSet()
	if doc.Paginated() {
		excluded = s.detector.IrrelevantPages(ctx, doc.Pages, doc.Outline)
		if !s.cfg.KeepLargeTables {
			excluded = detect.FullPageTables(ctx, doc.Elements, doc.Pages, excluded)
		}
	}
	report.ExcludedPages = excluded.Sorted()

	segments := s.linearizer.Linearize(ctx, doc.Elements, excluded)
	chunks := s.chunker.Chunk(ctx, segments)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("manual %s has no indexable content: %w", in.URL, appErr.ErrInputFormat)
	}
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		logger.Error("embed manual chunks failed", zap.Error(err))
		return nil, err
	}
	rows := make([]*model.ManualChunk, 0, len(chunks))
	for i, c := range chunks {
		rows = append(rows, &model.ManualChunk{
			Chunk:           c.Text,
			Embedding:       vectors[i],
			PageNumber:      c.PageNo,
			DeviceType:      in.DeviceType,
			DeviceModelUsed: in.DeviceModelUsed,
			URL:             in.URL,
			DocType:         format,
		})
	}
	if err := s.manuals.BulkInsert(ctx, rows); err != nil {
		logger.Error("insert manual chunks failed", zap.Error(err))
		return nil, err
	}
	report.Chunks = len(rows)
	report.Reingested = previous > 0
	logger.Info("manual ingested",
		zap.Int("pages", report.Pages),
		zap.Int("excluded_pages", len(report.ExcludedPages)),
		zap.Int("chunks", report.Chunks),
	)
	return report, nil
}

// IngestManuals processes independent documents concurrently. A failing
// document does not stop the others; its error is kept in its report.
func (s *IngestService) IngestManuals(ctx context.Context, inputs []*model.ManualInput) []*model.IngestReport {
	reports := make([]*model.IngestReport, len(inputs))
	workers := s.cfg.DocumentWorkers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, in := range inputs {
		g.Go(func() error {
			report, err := s.IngestManual(ctx, in)
			if err != nil {
				report = &model.IngestReport{URL: in.URL, Err: err}
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

// embedAll embeds texts on the worker pool, keeping the input order.
func (s *IngestService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	out := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}
	for i, text := range texts {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if jobCtx.Err() != nil {
				return
			}
			vec, err := s.embedder.Embed(jobCtx, text, ai.TaskRetrievalDocument)
			if err != nil {
				setErr(fmt.Errorf("embed chunk %d: %w", i, err))
				return
			}
			out[i] = vec
		})
		if err != nil {
			wg.Done()
			setErr(fmt.Errorf("submit embedding task: %w", err))
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func archiveKey(in *model.ManualInput, format string) string {
	sum := sha256.Sum256(in.Data)
	device := strings.ToLower(strings.Join(strings.Fields(in.DeviceType), "_"))
	device = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(device)
	return path.Join("manuals", device, hex.EncodeToString(sum[:])+"."+format)
}
