// Package embedding turns text into vectors through OpenAI-compatible APIs, a local ONNX model,
// or a deterministic mock, with an LRU cache for query embeddings.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/llm"
	"go.uber.org/zap"
)

// Mode tells asymmetric models whether text is being stored or searched for.
type Mode int

const (
	ModeDocument Mode = iota
	ModeQuery
)

func (m Mode) String() string {
	if m == ModeQuery {
		return "query"
	}
	return "document"
}

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New creates the configured embedder, wrapped in a query cache when cache_size is positive.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "openai", "":
		client := llm.NewClient(cfg.BaseURL, cfg.APIKey, llm.WithLogger(logger))
		e = NewOpenAIEmbedder(client, cfg.Model, cfg.Dimensions, cfg.InputType)
	case "onnx":
		e, err = NewONNXEmbedder(cfg)
	case "mock":
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, onnx, mock)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
