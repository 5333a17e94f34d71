package tabular

import (
	"context"
	"errors"

	"github.com/hyperjump/docqa/internal/models"
)

// ErrUnavailable means the relational store could not be reached. Callers propagate it
// instead of turning it into user-facing text.
var ErrUnavailable = errors.New("relational store unavailable")

// QueryResult is the column names and row values of a read-only query.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Store is a SQL-speaking relational store holding materialized tables.
type Store interface {
	// Dialect names the SQL dialect, e.g. "postgres" or "sqlite".
	Dialect() string
	MaxIdentifierLength() int
	// ColumnType maps a logical column type to the dialect's DDL type.
	ColumnType(t ColumnType) string
	// ReplaceTable drops name if present and creates it with the surrogate key plus columns, in one transaction.
	ReplaceTable(ctx context.Context, name string, columns []models.ColumnSchema) error
	// LoadRows bulk-inserts rows whose values follow columns.
	LoadRows(ctx context.Context, name string, columns []models.ColumnSchema, rows [][]any) (int64, error)
	DropTables(ctx context.Context, names []string) error
	// Query runs a single statement in a read-only transaction.
	Query(ctx context.Context, query string, args ...any) (*QueryResult, error)
	Close() error
}

func columnDefs(s Store, columns []models.ColumnSchema) []string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = QuoteIdentifier(c.Name) + " " + s.ColumnType(ColumnType(c.Type))
	}
	return defs
}

func columnNames(columns []models.ColumnSchema) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}
