package tabular

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docqa/internal/models"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	store, err := NewPostgresStore(context.Background(), dsn, 4, 5*time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore_roundTrip(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	name := "pgdata_proj0_asset0_roundtrip"
	t.Cleanup(func() { _ = store.DropTables(context.Background(), []string{name}) })

	cols := []models.ColumnSchema{{Name: "color", Type: "TEXT"}, {Name: "qty", Type: "INTEGER"}}
	require.NoError(t, store.ReplaceTable(ctx, name, cols))
	n, err := store.LoadRows(ctx, name, cols, [][]any{{"blue", int64(2)}, {"red", nil}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	res, err := store.Query(ctx, `SELECT color FROM "`+name+`" WHERE qty = 2`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "blue", FormatValue(res.Rows[0][0]))

	_, err = store.Query(ctx, `DELETE FROM "`+name+`"`)
	require.Error(t, err, "read-only transaction must reject writes")
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestPostgresStore_unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewPostgresStore(ctx, "postgres://nobody@127.0.0.1:1/none?connect_timeout=1", 1, time.Second, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
