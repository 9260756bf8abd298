package memory

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"genui/internal/domain"
)

// OpenStore builds the store selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg domain.MemoryConfig) (Store, error) {
	switch cfg.Backend {
	case "", domain.MemoryBackendEphemeral:
		return NewEphemeralStore(), nil
	case domain.MemoryBackendPersistent:
		dir := cfg.PersistDir
		if strings.TrimSpace(dir) == "" {
			dir = domain.DefaultMemoryPersistDir
		}
		store, err := OpenBoltStore(dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.MemoryBackendPostgres:
		if strings.TrimSpace(cfg.Postgres.DSN) == "" {
			return nil, fmt.Errorf("memory.postgres.dsn is required for backend %q", cfg.Backend)
		}
		store, err := NewPostgresStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.MemoryBackendMongo:
		if strings.TrimSpace(cfg.Mongo.URI) == "" {
			return nil, fmt.Errorf("memory.mongo.uri is required for backend %q", cfg.Backend)
		}
		database := cfg.Mongo.Database
		if database == "" {
			database = domain.DefaultMongoDatabase
		}
		store, err := NewMongoStore(ctx, cfg.Mongo.URI, database)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}

// Open builds the store and embedder from cfg and starts a session.
// It returns nil when memory is disabled.
func Open(ctx context.Context, cfg domain.MemoryConfig, logger *zap.Logger, metrics domain.Metrics) (*Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, "memory.Open", err)
	}
	embedder, err := NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, domain.Wrap(domain.CodeInvalidArgument, "memory.Open", err)
	}
	mode := cfg.Backend
	if mode == "" {
		mode = domain.DefaultMemoryBackend
	}
	svc, err := NewService(ctx, Options{
		Store:     store,
		Embedder:  embedder,
		SessionID: cfg.SessionID,
		Mode:      mode,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		_ = store.Close()
		if closer, ok := embedder.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, err
	}
	return svc, nil
}
