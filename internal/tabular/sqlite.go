package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docqa/internal/models"
)

// SQLiteStore keeps materialized tables in an embedded SQLite file. Queries go through a
// separate query_only connection pool so generated SQL can never write.
type SQLiteStore struct {
	db           *sql.DB
	ro           *sql.DB
	queryTimeout time.Duration
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string, queryTimeout time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ro, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_query_only=true")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open read-only connection: %w", err)
	}
	return &SQLiteStore{db: db, ro: ro, queryTimeout: queryTimeout}, nil
}

func (s *SQLiteStore) Dialect() string { return "sqlite" }

func (s *SQLiteStore) MaxIdentifierLength() int { return DefaultMaxIdentifierLength }

// ColumnType maps logical types to SQLite declared types.
func (s *SQLiteStore) ColumnType(t ColumnType) string {
	switch t {
	case TypeInteger, TypeBigInt:
		return "INTEGER"
	case TypeFloat:
		return "REAL"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// ReplaceTable drops and recreates name in one transaction.
func (s *SQLiteStore) ReplaceTable(ctx context.Context, name string, columns []models.ColumnSchema) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	q := QuoteIdentifier(name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+q); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	defs := append([]string{SurrogateKey + " INTEGER PRIMARY KEY AUTOINCREMENT"}, columnDefs(s, columns)...)
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+q+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table %s: %w", name, err)
	}
	return nil
}

// LoadRows inserts rows with one prepared statement inside a transaction.
func (s *SQLiteStore) LoadRows(ctx context.Context, name string, columns []models.ColumnSchema, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns for %s", name)
	}
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdentifier(c.Name)
		marks[i] = "?"
	}
	insert := "INSERT INTO " + QuoteIdentifier(name) + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	var n int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("failed to insert row %d into %s: %w", n+1, name, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rows into %s: %w", name, err)
	}
	return n, nil
}

// DropTables drops every named table that exists.
func (s *SQLiteStore) DropTables(ctx context.Context, names []string) error {
	for _, name := range names {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdentifier(name)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}
	return nil
}

// Query runs query on the query_only pool inside a read-only transaction.
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	tx, err := s.ro.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &QueryResult{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes both connection pools.
func (s *SQLiteStore) Close() error {
	roErr := s.ro.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return roErr
}
