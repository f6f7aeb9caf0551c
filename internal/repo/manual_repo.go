package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/supportrag/internal/model"
	"github.com/xxxsen/supportrag/internal/pkg/dbutil"
)

const insertBatchSize = 500

type ManualRepo struct {
	db *sql.DB
}

func NewManualRepo(db *sql.DB) *ManualRepo {
	return &ManualRepo{db: db}
}

// BulkInsert writes all chunks in one transaction. Rows are never deduplicated.
func (r *ManualRepo) BulkInsert(ctx context.Context, chunks []*model.ManualChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		var page interface{}
		if c.PageNumber > 0 {
			page = c.PageNumber
		}
		rows = append(rows, map[string]interface{}{
			"chunk":            c.Chunk,
			"chunk_embedding":  pgvector.NewVector(c.Embedding),
			"page_number":      page,
			"devicetype":       c.DeviceType,
			"devicemodel_used": c.DeviceModelUsed,
			"url":              c.URL,
			"doctype":          c.DocType,
		})
	}
	if err := insertBatches(ctx, r.db, model.CorpusManuals, rows); err != nil {
		return storeError(model.CorpusManuals, "insert", err)
	}
	return nil
}

func (r *ManualRepo) CountByURL(ctx context.Context, url string) (int, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM manuals WHERE url=?", []interface{}{url})
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, storeError(model.CorpusManuals, "count", err)
	}
	return count, nil
}

func insertBatches(ctx context.Context, db *sql.DB, table string, rows []map[string]interface{}) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		sqlStr, args, err := builder.BuildInsert(table, rows[start:end])
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		sqlStr, args = dbutil.Finalize(sqlStr, args)
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
