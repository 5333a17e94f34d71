package tabular

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/models"
)

// PostgresStore keeps materialized tables in Postgres through a pgx pool.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewPostgresStore connects a pool to dsn and verifies it with a ping.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int32, queryTimeout time.Duration, logger *zap.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, queryTimeout: queryTimeout, logger: logger}, nil
}

// NewPostgresStoreFromPool wraps an existing pool, e.g. one shared with the vector store.
func NewPostgresStoreFromPool(pool *pgxpool.Pool, queryTimeout time.Duration, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, queryTimeout: queryTimeout, logger: logger}
}

func (s *PostgresStore) Dialect() string { return "postgres" }

func (s *PostgresStore) MaxIdentifierLength() int { return DefaultMaxIdentifierLength }

// ColumnType maps logical types to Postgres types.
func (s *PostgresStore) ColumnType(t ColumnType) string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeBigInt:
		return "BIGINT"
	case TypeFloat:
		return "DOUBLE PRECISION"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// ReplaceTable drops and recreates name in one transaction.
func (s *PostgresStore) ReplaceTable(ctx context.Context, name string, columns []models.ColumnSchema) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := QuoteIdentifier(name)
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+q+" CASCADE"); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	defs := append([]string{SurrogateKey + " SERIAL PRIMARY KEY"}, columnDefs(s, columns)...)
	if _, err := tx.Exec(ctx, "CREATE TABLE "+q+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit table %s: %w", name, err)
	}
	return nil
}

// LoadRows bulk-loads rows with COPY.
func (s *PostgresStore) LoadRows(ctx context.Context, name string, columns []models.ColumnSchema, rows [][]any) (int64, error) {
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{name}, columnNames(columns), pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("failed to copy rows into %s: %w", name, err)
	}
	return n, nil
}

// DropTables drops every named table that exists.
func (s *PostgresStore) DropTables(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, name := range names {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+QuoteIdentifier(name)+" CASCADE"); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}
	return tx.Commit(ctx)
}

// Query runs query inside a read-only transaction bounded by the query timeout.
func (s *PostgresStore) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &QueryResult{}
	for _, fd := range rows.FieldDescriptions() {
		res.Columns = append(res.Columns, fd.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
