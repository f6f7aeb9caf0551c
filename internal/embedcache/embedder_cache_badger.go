package embedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/ai"
)

// BadgerCache is a local on-disk vector cache for single node deployments
// and for cli ingestion runs without a cache table.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(msg string, items ...interface{}) {
	l.logger.Errorf(msg, items...)
}

func (l *badgerLogger) Warningf(msg string, items ...interface{}) {
	l.logger.Warnf(msg, items...)
}

func (l *badgerLogger) Infof(msg string, items ...interface{}) {
	l.logger.Debugf(msg, items...)
}

func (l *badgerLogger) Debugf(msg string, items ...interface{}) {
	l.logger.Debugf(msg, items...)
}

// OpenBadgerCache opens the cache at dir. An empty dir keeps it in memory.
func OpenBadgerCache(dir string, ttl time.Duration) (*BadgerCache, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logutil.GetLogger(context.Background()).Sugar()}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerCache{db: db, ttl: ttl}, nil
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

func (c *BadgerCache) get(key string) ([]float32, bool, error) {
	var out []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *BadgerCache) put(key string, values []float32) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), raw)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func WrapBadgerCacheToEmbedder(e ai.IEmbedder, cache *BadgerCache) ai.IEmbedder {
	if e == nil || cache == nil {
		return e
	}
	return &badgerEmbedder{next: e, cache: cache}
}

type badgerEmbedder struct {
	next  ai.IEmbedder
	cache *BadgerCache
}

func (b *badgerEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	logger := logutil.GetLogger(ctx)
	key := buildCacheKey(b.next.ModelName(), taskType, text).String()
	values, ok, err := b.cache.get(key)
	if err != nil {
		logger.Warn("read badger cache failed", zap.Error(err))
	} else if ok {
		logger.Debug("embedding cache hit", zap.String("layer", "badger"), zap.String("task_type", taskType))
		return values, nil
	}
	res, err := b.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := b.cache.put(key, res); err != nil {
		logger.Warn("write badger cache failed", zap.Error(err))
	}
	return res, nil
}

func (b *badgerEmbedder) ModelName() string {
	return b.next.ModelName()
}
