package vector

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgvectorStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s, err := NewPgvectorStore(ctx, pool, DistanceCosine, nil)
	require.NoError(t, err)
	const name = "collection_test_pgvector"
	t.Cleanup(func() { _ = s.DeleteCollection(ctx, name) })

	created, err := s.CreateCollection(ctx, name, 3, true)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, s.Upsert(ctx, name, []Record{
		{ID: "1", Vector: []float32{1, 0, 0}, Text: "one", Metadata: map[string]any{"page": 1}},
		{ID: "2", Vector: []float32{0, 1, 0}, Text: "two"},
	}))
	require.NoError(t, s.Upsert(ctx, name, []Record{{ID: "2", Vector: []float32{0, 0, 1}, Text: "two again"}}))

	info, err := s.Info(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.PointsCount)
	assert.Equal(t, 3, info.Dimensions)

	res, err := s.Search(ctx, name, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "one", res[0].Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.Equal(t, float64(1), res[0].Metadata["page"])

	require.NoError(t, s.Delete(ctx, name, []string{"1"}))
	info, err = s.Info(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.PointsCount)
}
