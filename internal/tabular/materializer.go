package tabular

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/models"
)

// Materializer loads spreadsheet sheets into tables of a Store.
type Materializer struct {
	store      Store
	sampleRows int
	logger     *zap.Logger
}

// MaterializerOption configures a Materializer.
type MaterializerOption func(*Materializer)

// WithLogger sets the logger for skipped sheets and failed loads.
func WithLogger(l *zap.Logger) MaterializerOption {
	return func(m *Materializer) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSampleRows sets how many sample rows SchemaText includes. Zero disables samples.
func WithSampleRows(n int) MaterializerOption {
	return func(m *Materializer) { m.sampleRows = n }
}

// NewMaterializer creates a materializer writing to store.
func NewMaterializer(store Store, opts ...MaterializerOption) *Materializer {
	m := &Materializer{store: store, sampleRows: 3, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying relational store.
func (m *Materializer) Store() Store {
	return m.store
}

// Materialize creates one table per non-empty sheet of the file at path. A sheet whose table
// cannot be created or loaded is skipped (its table dropped). Only ErrUnavailable aborts the file,
// returning the tables created so far.
func (m *Materializer) Materialize(ctx context.Context, path string, projectID, assetID int64) ([]models.MaterializedTable, error) {
	sheets, err := LoadSheets(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load sheets: %w", err)
	}

	maxLen := m.store.MaxIdentifierLength()
	// Sheet names can sanitize or truncate to the same key; every sheet still gets its own table.
	used := make(map[string]bool, len(sheets))
	var tables []models.MaterializedTable
	for _, sheet := range sheets {
		if len(sheet.Rows) == 0 {
			m.logger.Warn("skipping empty sheet", zap.String("sheet", sheet.Name), zap.String("path", path))
			continue
		}
		name := uniqueName(TableName(projectID, assetID, sheet.Key, maxLen), used, maxLen)
		table, err := m.materializeSheet(ctx, sheet, name)
		if errors.Is(err, ErrUnavailable) {
			return tables, err
		}
		if err != nil {
			m.logger.Error("failed to materialize sheet", zap.String("sheet", sheet.Name), zap.Error(err))
			continue
		}
		table.OwningAssetID = assetID
		tables = append(tables, table)
		m.logger.Info("sheet materialized",
			zap.String("sheet", sheet.Name),
			zap.String("table", table.DBTableName),
			zap.Int64("rows", table.RowCount))
	}
	return tables, nil
}

func (m *Materializer) materializeSheet(ctx context.Context, sheet Sheet, name string) (models.MaterializedTable, error) {
	names := SanitizeColumns(sheet.Headers, m.store.MaxIdentifierLength())
	columns := make([]models.ColumnSchema, len(names))
	types := make([]ColumnType, len(names))
	values := make([]string, len(sheet.Rows))
	for i, col := range names {
		for r, row := range sheet.Rows {
			values[r] = row[i]
		}
		types[i] = InferType(values)
		columns[i] = models.ColumnSchema{Name: col, Type: string(types[i])}
	}

	rows := make([][]any, len(sheet.Rows))
	for r, raw := range sheet.Rows {
		row := make([]any, len(columns))
		for i := range columns {
			v, err := ParseCell(types[i], raw[i])
			if err != nil {
				return models.MaterializedTable{}, fmt.Errorf("row %d: %w", r+1, err)
			}
			row[i] = v
		}
		rows[r] = row
	}

	if err := m.store.ReplaceTable(ctx, name, columns); err != nil {
		return models.MaterializedTable{}, err
	}
	n, err := m.store.LoadRows(ctx, name, columns, rows)
	if err != nil {
		if dropErr := m.store.DropTables(ctx, []string{name}); dropErr != nil {
			m.logger.Warn("failed to drop table after load error", zap.String("table", name), zap.Error(dropErr))
		}
		return models.MaterializedTable{}, err
	}
	return models.MaterializedTable{
		DBTableName: name,
		SheetKey:    sheet.Key,
		Columns:     columns,
		RowCount:    n,
	}, nil
}

// SchemaChunks returns one schema chunk draft per table, in order. Orders are left for the caller.
func (m *Materializer) SchemaChunks(ctx context.Context, tables []models.MaterializedTable) []models.ChunkDraft {
	drafts := make([]models.ChunkDraft, 0, len(tables))
	for _, t := range tables {
		drafts = append(drafts, models.ChunkDraft{
			Text:     m.SchemaText(ctx, t),
			Metadata: models.SchemaMetadata(t.OwningAssetID, t.DBTableName),
		})
	}
	return drafts
}

// DropTables drops tables recorded on assets, e.g. on reset or asset delete.
func (m *Materializer) DropTables(ctx context.Context, names []string) error {
	return m.store.DropTables(ctx, names)
}
