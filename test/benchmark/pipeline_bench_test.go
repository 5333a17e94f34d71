package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/vector"
)

func BenchmarkChunker(b *testing.B) {
	text := strings.Repeat("Retrieval grounds answers in uploaded documents. ", 400)
	units := []models.NormalizedUnit{{Content: text, Metadata: map[string]any{models.MetaType: models.TypeTextDocument}}}
	c := indexer.NewChunker(512, 50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk(units)
	}
}

func BenchmarkMemoryStoreSearch(b *testing.B) {
	const dim = 384
	ctx := context.Background()
	store, _ := vector.NewMemoryStore("", vector.DistanceCosine)
	_, _ = store.CreateCollection(ctx, "bench", dim, false)
	records := make([]vector.Record, 1000)
	for i := range records {
		vec := make([]float32, dim)
		vec[0] = float32(i) / 1000
		vec[1] = 1
		records[i] = vector.Record{ID: fmt.Sprint(i + 1), Vector: vec, Text: "chunk"}
	}
	_ = store.Upsert(ctx, "bench", records)
	query := make([]float32, dim)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Search(ctx, "bench", query, 10)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	texts := []string{"benchmark query text for embedding"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, texts, embedding.ModeQuery)
	}
}
