package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/pkg/utils"
)

// Prompt is a rendered system and user message pair.
type Prompt struct {
	System string
	User   string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// ErrEmptyResponse is returned when the provider answers without any choices.
var ErrEmptyResponse = errors.New("provider returned no choices")

// ChatGenerator calls an OpenAI-compatible /chat/completions endpoint.
type ChatGenerator struct {
	client        *Client
	model         string
	maxTokens     int
	temperature   float64
	inputMaxChars int
}

// NewChatGenerator builds a generator from the generation config.
func NewChatGenerator(client *Client, cfg config.GenerationConfig) *ChatGenerator {
	return &ChatGenerator{
		client:        client,
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		inputMaxChars: cfg.InputMaxChars,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt and returns the first choice. The user message is clipped to the
// configured input limit.
func (g *ChatGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	var msgs []chatMessage
	if strings.TrimSpace(p.System) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: p.System})
	}
	user := strings.TrimSpace(utils.Clip(p.User, g.inputMaxChars))
	msgs = append(msgs, chatMessage{Role: "user", Content: user})
	return g.complete(ctx, chatRequest{
		Model:       g.model,
		Messages:    msgs,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
}

func (g *ChatGenerator) complete(ctx context.Context, req chatRequest) (string, error) {
	var resp chatResponse
	if err := g.client.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
