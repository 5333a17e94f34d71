package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

const pgCollectionsTable = "docqa_vector_collections"

// PgvectorStore keeps each collection in its own Postgres table with a vector column,
// and tracks collection settings in a registry table.
type PgvectorStore struct {
	pool     *pgxpool.Pool
	distance Distance
	logger   *zap.Logger
}

// NewPgvectorStore enables the vector extension and creates the registry table.
func NewPgvectorStore(ctx context.Context, pool *pgxpool.Pool, distance Distance, logger *zap.Logger) (*PgvectorStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS ` + pgCollectionsTable + ` (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			distance TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to prepare pgvector: %w", err)
		}
	}
	return &PgvectorStore{pool: pool, distance: distance, logger: logger}, nil
}

func (s *PgvectorStore) CreateCollection(ctx context.Context, name string, dim int, reset bool) (bool, error) {
	if dim <= 0 {
		return false, fmt.Errorf("dimensions must be positive")
	}
	if _, err := s.Info(ctx, name); err == nil {
		if !reset {
			return false, nil
		}
		if err := s.DeleteCollection(ctx, name); err != nil {
			return false, err
		}
	} else if !errors.Is(err, ErrCollectionNotFound) {
		return false, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	create := fmt.Sprintf(`CREATE TABLE %s (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		embedding vector(%d) NOT NULL
	)`, pgx.Identifier{name}.Sanitize(), dim)
	if _, err := tx.Exec(ctx, create); err != nil {
		return false, fmt.Errorf("failed to create collection table: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+pgCollectionsTable+` (name, dimensions, distance) VALUES ($1, $2, $3)`,
		name, dim, string(s.distance)); err != nil {
		return false, fmt.Errorf("failed to register collection: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	s.logger.Info("pgvector collection created", zap.String("collection", name), zap.Int("dimensions", dim))
	return true, nil
}

func (s *PgvectorStore) DeleteCollection(ctx context.Context, name string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("failed to drop collection table: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+pgCollectionsTable+` WHERE name = $1`, name); err != nil {
		return fmt.Errorf("failed to unregister collection: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PgvectorStore) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	info, err := s.Info(ctx, name)
	if err != nil {
		return err
	}
	if err := validateRecords(info.Dimensions, records); err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, text, metadata, embedding) VALUES ($1, $2, $3::jsonb, $4::vector)
		ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`,
		pgx.Identifier{name}.Sanitize())
	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(cloneMetadata(r.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", r.ID, err)
		}
		batch.Queue(query, r.ID, r.Text, string(meta), pgvector.NewVector(r.Vector))
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.Info(ctx, name); errors.Is(err, ErrCollectionNotFound) {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM `+pgx.Identifier{name}.Sanitize()+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

func (s *PgvectorStore) Search(ctx context.Context, name string, query []float32, k int) ([]Result, error) {
	info, err := s.Info(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(query) != info.Dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), info.Dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	// <=> is cosine distance, <#> is negative inner product.
	op, score := "<=>", "1 - (embedding <=> $1::vector)"
	if info.Distance == DistanceDot {
		op, score = "<#>", "-(embedding <#> $1::vector)"
	}
	sql := fmt.Sprintf(`SELECT id, text, metadata, %s FROM %s ORDER BY embedding %s $1::vector LIMIT $2`,
		score, pgx.Identifier{name}.Sanitize(), op)
	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r    Result
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.Text, &meta, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Metadata = map[string]any{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgvectorStore) Info(ctx context.Context, name string) (*CollectionInfo, error) {
	info := &CollectionInfo{Name: name}
	var dist string
	err := s.pool.QueryRow(ctx,
		`SELECT dimensions, distance FROM `+pgCollectionsTable+` WHERE name = $1`, name).Scan(&info.Dimensions, &dist)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	info.Distance = Distance(strings.ToLower(dist))
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+pgx.Identifier{name}.Sanitize()).Scan(&info.PointsCount); err != nil {
		return nil, fmt.Errorf("failed to count vectors: %w", err)
	}
	return info, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PgvectorStore) Close() error {
	return nil
}
