package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/ai"
	"github.com/xxxsen/supportrag/internal/config"
	"github.com/xxxsen/supportrag/internal/db"
	"github.com/xxxsen/supportrag/internal/embedcache"
	"github.com/xxxsen/supportrag/internal/filestore"
	"github.com/xxxsen/supportrag/internal/repo"
	"github.com/xxxsen/supportrag/internal/service"
)

type app struct {
	cfg        *config.Config
	db         *sql.DB
	cacheRepo  *repo.EmbeddingCacheRepo
	badger     *embedcache.BadgerCache
	ingest     *service.IngestService
	retrieval  *service.RetrievalService
	assist     *service.AssistService
	closeFuncs []func()
}

func (a *app) Close() {
	for i := len(a.closeFuncs) - 1; i >= 0; i-- {
		a.closeFuncs[i]()
	}
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return conn, nil
}

func buildEmbedder(a *app) (ai.IEmbedder, error) {
	cfg := a.cfg
	embedder, err := ai.BuildEmbedder(cfg.AI.Embedders, cfg.AI.Dimensions)
	if err != nil {
		return nil, err
	}
	if cfg.EmbedCache.EnableDB {
		a.cacheRepo = repo.NewEmbeddingCacheRepo(a.db)
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, a.cacheRepo)
	}
	if cfg.EmbedCache.BadgerDir != "" {
		ttl := time.Duration(cfg.EmbedCache.BadgerTTLDays) * 24 * time.Hour
		cache, err := embedcache.OpenBadgerCache(cfg.EmbedCache.BadgerDir, ttl)
		if err != nil {
			return nil, err
		}
		a.badger = cache
		a.closeFuncs = append(a.closeFuncs, func() { _ = cache.Close() })
		embedder = embedcache.WrapBadgerCacheToEmbedder(embedder, cache)
	}
	return embedcache.WrapLruCacheToEmbedder(embedder, cfg.EmbedCache.LRUSize,
		time.Duration(cfg.EmbedCache.LRUTTLSeconds)*time.Second), nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	conn, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: conn}
	a.closeFuncs = append(a.closeFuncs, func() { _ = conn.Close() })

	embedder, err := buildEmbedder(a)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	generator, err := ai.BuildGenerator(cfg.AI.Generators)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init generator: %w", err)
	}
	manager := ai.NewManager(generator, embedder, ai.ManagerConfig{Timeout: cfg.AI.Timeout})

	var store filestore.Store
	if cfg.FileStore.Type != "" {
		store, err = filestore.New(cfg.FileStore)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init file store: %w", err)
		}
	}

	ingest, err := service.NewIngestService(cfg.Ingest,
		repo.NewManualRepo(conn), repo.NewTicketRepo(conn), manager, manager, store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ingest = ingest
	a.closeFuncs = append(a.closeFuncs, ingest.Release)

	hybrid := repo.NewHybridStore(conn, repo.HybridConfig{
		Limit:       cfg.Retrieval.Limit,
		BranchLimit: cfg.Retrieval.BranchLimit,
		RRFK:        cfg.Retrieval.RRFK,
	})
	a.retrieval = service.NewRetrievalService(hybrid, manager)
	a.assist = service.NewAssistService(manager, a.retrieval)

	logutil.GetLogger(ctx).Info("app initialized",
		zap.String("embedder", manager.ModelName()),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Bool("db_embed_cache", cfg.EmbedCache.EnableDB),
		zap.Bool("badger_embed_cache", a.badger != nil),
	)
	return a, nil
}
