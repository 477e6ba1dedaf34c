package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/impactmatch/internal/config"
	"github.com/dshills/impactmatch/internal/embedder"
	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/internal/indexer"
	"github.com/dshills/impactmatch/internal/logger"
	"github.com/dshills/impactmatch/internal/matcher"
	"github.com/dshills/impactmatch/internal/retrieval"
	"github.com/dshills/impactmatch/internal/storage"
)

// app is the wired engine for one command invocation
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      storage.Store
	tables     *heuristics.Tables
	provider   embedder.Embedder
	embeddings *embedder.Service
	matcher    *matcher.Matcher
	queue      indexer.Queue
	indexer    *indexer.Indexer
}

// newApp opens the store and builds the engine. The task queue is only
// connected when withQueue is set.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, withQueue bool) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	tables, err := loadTables(cfg.Heuristics.Dir)
	if err != nil {
		return nil, err
	}
	a.tables = tables

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.store = store

	provider, err := embedder.New(ctx, cfg.EmbedderOptions())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	a.provider = provider
	log.Info("embedding provider ready", logger.ProviderFields(provider.Provider(), provider.Model())...)

	a.embeddings = embedder.NewService(provider, tables, log.Named("embedder"))

	retriever := retrieval.New(store, a.embeddings,
		retrieval.WithCandidateLimit(cfg.Matching.CandidateLimit),
		retrieval.WithVectorCacheTTL(cfg.Matching.VectorCacheTTL),
		retrieval.WithLogger(log.Named("retrieval")))

	a.matcher = matcher.New(store, retriever, tables, log.Named("matcher"), matcher.Config{
		Workers:        cfg.Matching.Workers,
		PersistMatches: cfg.Matching.PersistMatches,
	})

	if withQueue {
		q, err := openQueue(ctx, cfg.Queue)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.queue = q
	}

	a.indexer = indexer.New(store, a.embeddings, a.queue, log.Named("indexer"), indexer.Config{
		Workers:   cfg.Queue.Workers,
		BatchSize: cfg.Queue.BatchSize,
	})
	return a, nil
}

func loadTables(dir string) (*heuristics.Tables, error) {
	if dir == "" {
		return heuristics.Default()
	}
	tables, err := heuristics.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading heuristics from %s: %w", dir, err)
	}
	return tables, nil
}

func openQueue(ctx context.Context, cfg config.QueueConfig) (indexer.Queue, error) {
	switch cfg.Backend {
	case config.QueueRedis:
		client, err := indexer.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return indexer.NewRedisQueue(client, cfg.Key), nil
	default:
		return indexer.NewMemoryQueue(cfg.Buffer), nil
	}
}

// Close releases the queue, provider and store
func (a *app) Close() {
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.provider != nil {
		_ = a.provider.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing store", zap.Error(err))
		}
	}
}
