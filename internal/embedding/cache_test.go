package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	// a becomes most recent, so c evicts b.
	c.Get("a")
	c.Set("c", []float32{6})
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d, want 2", c.Len())
	}
}

type countingEmbedder struct {
	*MockEmbedder
	calls []int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	c.calls = append(c.calls, len(texts))
	return c.MockEmbedder.Embed(ctx, texts, mode)
}

func TestCachedEmbedder_CachesQueriesOnly(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := e.Embed(ctx, []string{"q1"}, ModeQuery)
	if err != nil {
		t.Fatal(err)
	}
	mixed, err := e.Embed(ctx, []string{"q2", "q1"}, ModeQuery)
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.calls) != 2 || inner.calls[1] != 1 {
		t.Errorf("second call should only embed the miss, calls=%v", inner.calls)
	}
	for i := range first[0] {
		if mixed[1][i] != first[0][i] {
			t.Fatal("cached vector should be returned in its slot")
		}
	}

	_, _ = e.Embed(ctx, []string{"q1"}, ModeDocument)
	if len(inner.calls) != 3 {
		t.Errorf("document mode should bypass the cache, calls=%v", inner.calls)
	}
	if e.Dimensions() != 4 {
		t.Errorf("Dimensions=%d", e.Dimensions())
	}
}
