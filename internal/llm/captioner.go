package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hyperjump/docqa/internal/config"
)

// Captioner describes an image in text.
type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// VisionCaptioner sends images as data URLs to an OpenAI-compatible vision model.
type VisionCaptioner struct {
	gen    *ChatGenerator
	prompt string
}

// NewVisionCaptioner builds a captioner from the vision config.
func NewVisionCaptioner(client *Client, cfg config.VisionConfig) *VisionCaptioner {
	return &VisionCaptioner{
		gen: &ChatGenerator{
			client:    client,
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
		},
		prompt: cfg.Prompt,
	}
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Caption returns the model's description of image. Non-image bytes are rejected before any call.
func (v *VisionCaptioner) Caption(ctx context.Context, image []byte) (string, error) {
	url, err := DataURL(image)
	if err != nil {
		return "", err
	}
	req := chatRequest{
		Model: v.gen.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: v.prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: url}},
			},
		}},
		MaxTokens: v.gen.maxTokens,
	}
	return v.gen.complete(ctx, req)
}

// DataURL encodes image as a base64 data URL using its sniffed MIME type.
func DataURL(image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}
	mt := mimetype.Detect(image)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("unsupported image type: %s", mt.String())
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(image), nil
}
