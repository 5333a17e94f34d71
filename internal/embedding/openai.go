package embedding

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/docqa/internal/llm"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client     *llm.Client
	model      string
	dimensions int
	inputType  bool
}

// NewOpenAIEmbedder creates an embedder. With inputType set, requests carry input_type
// (search_document or search_query) for providers that embed the two modes differently.
func NewOpenAIEmbedder(client *llm.Client, model string, dimensions int, inputType bool) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: model, dimensions: dimensions, inputType: inputType}
}

type embeddingsRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	InputType string   `json:"input_type,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := embeddingsRequest{Model: e.model, Input: texts}
	if e.inputType {
		req.InputType = "search_" + mode.String()
	}
	var resp embeddingsResponse
	if err := e.client.PostJSON(ctx, "/embeddings", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("failed to embed: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}
	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		if e.dimensions > 0 && len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("failed to embed: dimension %d, expected %d", len(d.Embedding), e.dimensions)
		}
		out[i] = d.Embedding
	}
	return out, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Close() error {
	return nil
}
