package repo_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/supportrag/internal/model"
	"github.com/xxxsen/supportrag/internal/repo"
	"github.com/xxxsen/supportrag/test/testutil"
)

func randomVector(r *rand.Rand) []float32 {
	vec := make([]float32, model.EmbeddingDimensions)
	for i := range vec {
		vec[i] = r.Float32()*2 - 1
	}
	return vec
}

func TestManualRoundTrip(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	device := fmt.Sprintf("dryer-%d", r.Int63())
	defer func() {
		_, _ = db.Exec("DELETE FROM manuals WHERE devicetype = $1", device)
	}()

	chunks := []*model.ManualChunk{
		{Chunk: "# Cleaning remove the lint screen", Embedding: randomVector(r), PageNumber: 4, DeviceType: device, URL: "https://example.com/dryer.pdf", DocType: "manual"},
		{Chunk: "## Heater replace the heating element when error E5 shows", Embedding: randomVector(r), PageNumber: 9, DeviceType: device, URL: "https://example.com/dryer.pdf", DocType: "manual"},
		{Chunk: "warranty conditions", Embedding: randomVector(r), DeviceType: device, URL: "https://example.com/dryer.html", DocType: "web"},
	}
	manuals := repo.NewManualRepo(db)
	require.NoError(t, manuals.BulkInsert(ctx, chunks))
	count, err := manuals.CountByURL(ctx, "https://example.com/dryer.pdf")
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 2)

	store := repo.NewHybridStore(db, repo.HybridConfig{})
	res, err := store.SearchManuals(ctx, "heating element E5", chunks[1].Embedding, device)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	require.LessOrEqual(t, len(res), 5)
	require.Equal(t, chunks[1].Chunk, res[0].Chunk)
	require.Equal(t, 9, res[0].PageNumber)
	for i := 1; i < len(res); i++ {
		require.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}

	// unknown page is stored as NULL and read back as 0
	res, err = store.SearchManuals(ctx, "warranty", chunks[2].Embedding, device)
	require.NoError(t, err)
	require.Equal(t, "warranty conditions", res[0].Chunk)
	require.Equal(t, 0, res[0].PageNumber)

	// other devices never leak in
	res, err = store.SearchManuals(ctx, "heating element", chunks[1].Embedding, device+"-other")
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestTicketRoundTrip(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticketID := fmt.Sprintf("T-%d", r.Int63())
	defer func() {
		_, _ = db.Exec("DELETE FROM tickets WHERE ticketid = $1", ticketID)
	}()

	chunk := &model.TicketChunk{
		Chunk:      "Oven fan noisy, replaced fan motor. Spare Parts used: fan motor",
		Embedding:  randomVector(r),
		DeviceType: "oven",
		TicketID:   ticketID,
	}
	tickets := repo.NewTicketRepo(db)
	require.NoError(t, tickets.BulkInsert(ctx, []*model.TicketChunk{chunk}))
	count, err := tickets.CountByTicketID(ctx, ticketID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	store := repo.NewHybridStore(db, repo.HybridConfig{Limit: 3})
	res, err := store.SearchTickets(ctx, "oven fan motor's", chunk.Embedding)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	require.Equal(t, ticketID, res[0].TicketID)
	require.LessOrEqual(t, len(res), 3)
}

func TestEmbeddingCacheRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	cache := repo.NewEmbeddingCacheRepo(db)
	hash := fmt.Sprintf("hash-%d", time.Now().UnixNano())

	_, ok, err := cache.Get(ctx, "m", "q", hash)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Save(ctx, &model.EmbeddingCache{ModelName: "m", TaskType: "q", ContentHash: hash, Embedding: []float32{1, 2, 3}, Ctime: 10}))
	vec, ok, err := cache.Get(ctx, "m", "q", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3}, vec)

	deleted, err := cache.DeleteBefore(ctx, 11)
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(1))
}
