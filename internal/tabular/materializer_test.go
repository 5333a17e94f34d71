package tabular

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/docqa/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tables.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestMaterializer_csvIntoSQLite(t *testing.T) {
	store := newSQLiteStore(t)
	m := NewMaterializer(store, WithSampleRows(2))
	ctx := context.Background()

	path := writeCSV(t, "sales.csv", "Region,Amount,Paid\nnorth,10,yes\nsouth,20.5,no\neast,,yes\n")
	tables, err := m.Materialize(ctx, path, 3, 9)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	table := tables[0]
	assert.Equal(t, "pgdata_proj3_asset9_sales", table.DBTableName)
	assert.Equal(t, "sales", table.SheetKey)
	assert.Equal(t, int64(9), table.OwningAssetID)
	assert.Equal(t, int64(3), table.RowCount)
	assert.Equal(t, []models.ColumnSchema{
		{Name: "region", Type: "TEXT"},
		{Name: "amount", Type: "FLOAT"},
		{Name: "paid", Type: "BOOLEAN"},
	}, table.Columns)

	res, err := store.Query(ctx, `SELECT COUNT(*) AS n FROM "pgdata_proj3_asset9_sales" WHERE amount IS NOT NULL`)
	require.NoError(t, err)
	assert.Equal(t, "2", FormatValue(res.Rows[0][0]))

	text := m.SchemaText(ctx, table)
	assert.True(t, strings.HasPrefix(text, "Table Name: \"pgdata_proj3_asset9_sales\"\nColumns:\n- \"region\" (TEXT)\n"), text)
	assert.Contains(t, text, "\nSample Rows (first few rows):\n| \"pg_id\" | \"region\" | \"amount\" | \"paid\" |\n| --- | --- | --- | --- |\n| 1 | north | 10 |")
	assert.Equal(t, 4, strings.Count(text, "\n| "), "header, separator, and two sample rows")

	drafts := m.SchemaChunks(ctx, tables)
	require.Len(t, drafts, 1)
	payload, err := models.PayloadFrom(drafts[0].Text, drafts[0].Metadata)
	require.NoError(t, err)
	schema, ok := payload.(models.SchemaChunk)
	require.True(t, ok)
	assert.Equal(t, table.DBTableName, schema.TableName)
	assert.Equal(t, int64(9), schema.SourceAssetID)

	require.NoError(t, m.DropTables(ctx, []string{table.DBTableName}))
	_, err = store.Query(ctx, `SELECT * FROM "pgdata_proj3_asset9_sales"`)
	assert.Error(t, err)
}

func TestMaterializer_rematerializeReplaces(t *testing.T) {
	store := newSQLiteStore(t)
	m := NewMaterializer(store)
	ctx := context.Background()

	path := writeCSV(t, "t.csv", "a\n1\n2\n")
	_, err := m.Materialize(ctx, path, 1, 1)
	require.NoError(t, err)
	tables, err := m.Materialize(ctx, path, 1, 1)
	require.NoError(t, err)

	res, err := store.Query(ctx, "SELECT COUNT(*) FROM "+QuoteIdentifier(tables[0].DBTableName))
	require.NoError(t, err)
	assert.Equal(t, "2", FormatValue(res.Rows[0][0]))
}

func TestMaterializer_collidingSheetKeysGetDistinctTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Sales!"))
	require.NoError(t, f.SetSheetRow("Sales!", "A1", &[]any{"region", "amount"}))
	require.NoError(t, f.SetSheetRow("Sales!", "A2", &[]any{"north", 10}))
	_, err := f.NewSheet("Sales#")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sales#", "A1", &[]any{"employee"}))
	require.NoError(t, f.SetSheetRow("Sales#", "A2", &[]any{"ana"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	store := newSQLiteStore(t)
	m := NewMaterializer(store)
	ctx := context.Background()
	tables, err := m.Materialize(ctx, path, 1, 1)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "pgdata_proj1_asset1_sales", tables[0].DBTableName)
	assert.Equal(t, "pgdata_proj1_asset1_sales_1", tables[1].DBTableName)

	res, err := store.Query(ctx, "SELECT region FROM "+QuoteIdentifier(tables[0].DBTableName))
	require.NoError(t, err)
	assert.Equal(t, "north", FormatValue(res.Rows[0][0]))
	res, err = store.Query(ctx, "SELECT employee FROM "+QuoteIdentifier(tables[1].DBTableName))
	require.NoError(t, err)
	assert.Equal(t, "ana", FormatValue(res.Rows[0][0]))

	drafts := m.SchemaChunks(ctx, tables)
	require.Len(t, drafts, 2)
	assert.Contains(t, drafts[0].Text, "| \"pg_id\" | \"region\" | \"amount\" |")
	assert.Contains(t, drafts[1].Text, "| \"pg_id\" | \"employee\" |")
}

func TestMaterializer_skipsEmptyCSV(t *testing.T) {
	m := NewMaterializer(newSQLiteStore(t))
	tables, err := m.Materialize(context.Background(), writeCSV(t, "empty.csv", "a,b\n"), 1, 1)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestSQLiteStore_queryIsReadOnly(t *testing.T) {
	store := newSQLiteStore(t)
	m := NewMaterializer(store)
	ctx := context.Background()
	tables, err := m.Materialize(ctx, writeCSV(t, "t.csv", "a\n1\n"), 1, 1)
	require.NoError(t, err)

	_, err = store.Query(ctx, "DROP TABLE "+QuoteIdentifier(tables[0].DBTableName))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable), "a rejected write is a query error, not unavailability")

	res, err := store.Query(ctx, "SELECT a FROM "+QuoteIdentifier(tables[0].DBTableName))
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

// fakeStore records calls and fails on demand.
type fakeStore struct {
	replaceErr error
	loadErr    error
	queryErr   error
	dropped    []string
	replaced   []string
}

func (f *fakeStore) Dialect() string                { return "fake" }
func (f *fakeStore) MaxIdentifierLength() int       { return DefaultMaxIdentifierLength }
func (f *fakeStore) ColumnType(t ColumnType) string { return string(t) }
func (f *fakeStore) Close() error                   { return nil }
func (f *fakeStore) ReplaceTable(_ context.Context, name string, _ []models.ColumnSchema) error {
	f.replaced = append(f.replaced, name)
	return f.replaceErr
}
func (f *fakeStore) LoadRows(_ context.Context, _ string, _ []models.ColumnSchema, rows [][]any) (int64, error) {
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	return int64(len(rows)), nil
}
func (f *fakeStore) DropTables(_ context.Context, names []string) error {
	f.dropped = append(f.dropped, names...)
	return nil
}
func (f *fakeStore) Query(context.Context, string, ...any) (*QueryResult, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &QueryResult{}, nil
}

func TestMaterializer_loadFailureDropsTable(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("copy failed")}
	m := NewMaterializer(store)
	tables, err := m.Materialize(context.Background(), writeCSV(t, "t.csv", "a\n1\n"), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, tables)
	assert.Equal(t, []string{"pgdata_proj1_asset2_t"}, store.dropped)
}

func TestMaterializer_unavailablePropagates(t *testing.T) {
	store := &fakeStore{replaceErr: ErrUnavailable}
	m := NewMaterializer(store)
	_, err := m.Materialize(context.Background(), writeCSV(t, "t.csv", "a\n1\n"), 1, 2)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSchemaText_sampleFailure(t *testing.T) {
	m := NewMaterializer(&fakeStore{queryErr: errors.New("boom")})
	text := m.SchemaText(context.Background(), models.MaterializedTable{
		DBTableName: "t",
		Columns:     []models.ColumnSchema{{Name: "a", Type: "INTEGER"}},
	})
	assert.Equal(t, "Table Name: \"t\"\nColumns:\n- \"a\" (INTEGER)\n\nSample Rows: (Could not be retrieved due to an error)", text)
}
