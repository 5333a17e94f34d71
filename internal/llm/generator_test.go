package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, reply string, capture *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatGenerator_Generate(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, "  the answer  ", &req)
	gen := NewChatGenerator(NewClient(srv.URL, "k"), config.GenerationConfig{
		Model:         "gpt-test",
		MaxTokens:     50,
		Temperature:   0.1,
		InputMaxChars: 10,
	})

	out, err := gen.Generate(context.Background(), Prompt{System: "be brief", User: "0123456789abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)

	assert.Equal(t, "gpt-test", req["model"])
	assert.Equal(t, float64(50), req["max_tokens"])
	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "0123456789", msgs[1].(map[string]any)["content"])
}

func TestChatGenerator_NoSystemMessage(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, "ok", &req)
	gen := NewChatGenerator(NewClient(srv.URL, ""), config.GenerationConfig{Model: "m"})

	_, err := gen.Generate(context.Background(), Prompt{User: "hello"})
	require.NoError(t, err)
	msgs := req["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestChatGenerator_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	gen := NewChatGenerator(NewClient(srv.URL, ""), config.GenerationConfig{Model: "m"})
	_, err := gen.Generate(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestVisionCaptioner_Caption(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, "a red square", &req)
	c := NewVisionCaptioner(NewClient(srv.URL, ""), config.VisionConfig{Model: "vision", MaxTokens: 30, Prompt: "describe"})

	out, err := c.Caption(context.Background(), pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "a red square", out)

	msgs := req["messages"].([]any)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "describe", parts[0].(map[string]any)["text"])
	url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)
}

func TestDataURL_RejectsNonImages(t *testing.T) {
	_, err := DataURL([]byte("just some text"))
	assert.Error(t, err)
	_, err = DataURL(nil)
	assert.Error(t, err)
}
