package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Backend names accepted in vector.backend.
const (
	BackendMemory   = "memory"
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
)

// NewStore creates the configured vector store. pool is required only for pgvector.
func NewStore(ctx context.Context, cfg config.VectorConfig, pool *pgxpool.Pool, logger *zap.Logger) (Store, error) {
	dist, err := ParseDistance(cfg.Distance)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(cfg.MemoryPath, dist)
	case BackendQdrant:
		if cfg.QdrantURL == "" {
			return nil, fmt.Errorf("qdrant backend requires a url")
		}
		return NewQdrantStore(cfg.QdrantURL, dist, nil, logger), nil
	case BackendPgvector:
		if pool == nil {
			return nil, fmt.Errorf("pgvector backend requires a postgres pool")
		}
		return NewPgvectorStore(ctx, pool, dist, logger)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: memory, qdrant, pgvector)", cfg.Backend)
	}
}
