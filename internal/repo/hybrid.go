package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/supportrag/internal/model"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
)

const (
	defaultResultLimit = 5
	defaultBranchLimit = 40
	defaultRRFK        = 60
)

// corpusTable describes how one corpus is searched. filterColumn is empty for
// corpora that are not restricted by device type.
type corpusTable struct {
	table        string
	columns      []string
	filterColumn string
}

var corpusTables = map[string]corpusTable{
	model.CorpusManuals: {
		table: "manuals",
		columns: []string{
			"id", "chunk", "COALESCE(page_number, 0) AS page_number", "devicetype",
			"devicemodel_used", "url", "doctype",
		},
		filterColumn: "devicetype",
	},
	model.CorpusTickets: {
		table:   "tickets",
		columns: []string{"id", "chunk", "devicetype", "ticketid"},
	},
}

// queryPlan holds the parameterized statements of one corpus. The query
// embedding is always $1 for the vector branch and the sanitized text is $1
// for the lexical branch; the device filter, when present, is $2.
type queryPlan struct {
	corpus     string
	filtered   bool
	vectorSQL  string
	lexicalSQL string
	fetchSQL   string
}

func buildPlan(corpus string, ct corpusTable, branchLimit int) queryPlan {
	filter := ""
	lexFilter := ""
	if ct.filterColumn != "" {
		filter = fmt.Sprintf("WHERE %s = $2", ct.filterColumn)
		lexFilter = fmt.Sprintf("%s = $2 AND ", ct.filterColumn)
	}
	return queryPlan{
		corpus:   corpus,
		filtered: ct.filterColumn != "",
		vectorSQL: fmt.Sprintf(`
		SELECT id, rank() OVER (ORDER BY chunk_embedding <=> $1) AS rank
		FROM %s %s
		ORDER BY rank
		LIMIT %d`, ct.table, filter, branchLimit),
		lexicalSQL: fmt.Sprintf(`
		SELECT id, rank() OVER (ORDER BY ts_rank_cd(to_tsvector('english', chunk), plainto_tsquery('english', $1)) DESC) AS rank
		FROM %s
		WHERE %splainto_tsquery('english', $1) @@ to_tsvector('english', chunk)
		ORDER BY rank
		LIMIT %d`, ct.table, lexFilter, branchLimit),
		fetchSQL: fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`,
			strings.Join(ct.columns, ", "), ct.table),
	}
}

type HybridConfig struct {
	Limit       int
	BranchLimit int
	RRFK        int
}

// HybridStore answers semantic plus lexical queries over both corpora and
// fuses the two rank lists.
type HybridStore struct {
	db    *sqlx.DB
	limit int
	rrfK  int
	plans map[string]queryPlan
}

func NewHybridStore(db *sql.DB, cfg HybridConfig) *HybridStore {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultResultLimit
	}
	if cfg.BranchLimit <= 0 {
		cfg.BranchLimit = defaultBranchLimit
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = defaultRRFK
	}
	plans := make(map[string]queryPlan, len(corpusTables))
	for name, ct := range corpusTables {
		plans[name] = buildPlan(name, ct, cfg.BranchLimit)
	}
	return &HybridStore{
		db:    sqlx.NewDb(db, "postgres"),
		limit: cfg.Limit,
		rrfK:  cfg.RRFK,
		plans: plans,
	}
}

func (s *HybridStore) SearchManuals(ctx context.Context, query string, embedding []float32, deviceType string) ([]*model.ManualResult, error) {
	if strings.TrimSpace(deviceType) == "" {
		return nil, fmt.Errorf("manuals query needs a device type: %w", appErr.ErrValidation)
	}
	plan := s.plans[model.CorpusManuals]
	fused, err := s.fuse(ctx, plan, query, embedding, deviceType)
	if err != nil {
		return nil, err
	}
	if len(fused) == 0 {
		return []*model.ManualResult{}, nil
	}
	var rows []*model.ManualResult
	if err := s.db.SelectContext(ctx, &rows, plan.fetchSQL, pq.Array(fusedIDs(fused))); err != nil {
		return nil, storeError(plan.corpus, "fetch", err)
	}
	byID := make(map[int64]*model.ManualResult, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]*model.ManualResult, 0, len(fused))
	for _, f := range fused {
		if row, ok := byID[f.ID]; ok {
			row.Score = f.Score
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *HybridStore) SearchTickets(ctx context.Context, query string, embedding []float32) ([]*model.TicketResult, error) {
	plan := s.plans[model.CorpusTickets]
	fused, err := s.fuse(ctx, plan, query, embedding, "")
	if err != nil {
		return nil, err
	}
	if len(fused) == 0 {
		return []*model.TicketResult{}, nil
	}
	var rows []*model.TicketResult
	if err := s.db.SelectContext(ctx, &rows, plan.fetchSQL, pq.Array(fusedIDs(fused))); err != nil {
		return nil, storeError(plan.corpus, "fetch", err)
	}
	byID := make(map[int64]*model.TicketResult, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]*model.TicketResult, 0, len(fused))
	for _, f := range fused {
		if row, ok := byID[f.ID]; ok {
			row.Score = f.Score
			out = append(out, row)
		}
	}
	return out, nil
}

// fuse runs both branches concurrently; both must succeed before fusion.
func (s *HybridStore) fuse(ctx context.Context, plan queryPlan, query string, embedding []float32, deviceType string) ([]model.FusedID, error) {
	if len(embedding) != model.EmbeddingDimensions {
		return nil, fmt.Errorf("query embedding has %d dimensions, want %d: %w",
			len(embedding), model.EmbeddingDimensions, appErr.ErrValidation)
	}
	cleaned := SanitizeQuery(query)
	vec := pgvector.NewVector(embedding)

	var vectorRanks, lexicalRanks []model.RankedID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		args := []interface{}{vec}
		if plan.filtered {
			args = append(args, deviceType)
		}
		if err := s.db.SelectContext(gctx, &vectorRanks, plan.vectorSQL, args...); err != nil {
			return storeError(plan.corpus, "vector search", err)
		}
		return nil
	})
	g.Go(func() error {
		if cleaned == "" {
			return nil
		}
		args := []interface{}{cleaned}
		if plan.filtered {
			args = append(args, deviceType)
		}
		if err := s.db.SelectContext(gctx, &lexicalRanks, plan.lexicalSQL, args...); err != nil {
			return storeError(plan.corpus, "lexical search", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	fused := FuseRanks(s.rrfK, s.limit, vectorRanks, lexicalRanks)
	logutil.GetLogger(ctx).Debug("hybrid search fused",
		zap.String("corpus", plan.corpus),
		zap.Int("vector_hits", len(vectorRanks)),
		zap.Int("lexical_hits", len(lexicalRanks)),
		zap.Int("results", len(fused)),
	)
	return fused, nil
}

// SanitizeQuery drops characters that carry meaning in SQL literals or
// text-search syntax.
func SanitizeQuery(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '%', '_', '\'':
			return -1
		}
		return r
	}, query)
	return strings.TrimSpace(cleaned)
}

func fusedIDs(fused []model.FusedID) []int64 {
	ids := make([]int64, 0, len(fused))
	for _, f := range fused {
		ids = append(ids, f.ID)
	}
	return ids
}
