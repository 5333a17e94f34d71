package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/docqa/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests. The same text always gets the same
// unit-length vector, whatever the mode.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock of the given dimensions (384 when not positive).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := HashString(text)
		emb := make([]float32, e.dimensions)
		for j := range emb {
			emb[j] = float32(math.Sin(float64(h%100003)*float64(j+1))*0.1 + 0.01)
		}
		utils.NormalizeL2(emb)
		out[i] = emb
	}
	return out, nil
}

func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *MockEmbedder) Close() error {
	return nil
}
