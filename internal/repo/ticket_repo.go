package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/supportrag/internal/model"
	"github.com/xxxsen/supportrag/internal/pkg/dbutil"
)

type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

func (r *TicketRepo) BulkInsert(ctx context.Context, chunks []*model.TicketChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, map[string]interface{}{
			"chunk":           c.Chunk,
			"chunk_embedding": pgvector.NewVector(c.Embedding),
			"devicetype":      c.DeviceType,
			"ticketid":        c.TicketID,
		})
	}
	if err := insertBatches(ctx, r.db, model.CorpusTickets, rows); err != nil {
		return storeError(model.CorpusTickets, "insert", err)
	}
	return nil
}

func (r *TicketRepo) CountByTicketID(ctx context.Context, ticketID string) (int, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM tickets WHERE ticketid=?", []interface{}{ticketID})
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, storeError(model.CorpusTickets, "count", err)
	}
	return count, nil
}
