// Package extract loads stored assets into normalized (text, metadata) units.
package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/models"
	"go.uber.org/zap"
)

// Normalizer loads text, PDF, and image assets. Tabular assets are handled by the tabular package.
type Normalizer struct {
	root        func(projectID int64, name string) string
	captioner   llm.Captioner
	concurrency int
	logger      *zap.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithCaptioner enables captions for images embedded in PDFs.
func WithCaptioner(c llm.Captioner) Option {
	return func(n *Normalizer) { n.captioner = c }
}

// WithConcurrency bounds parallel caption calls per PDF.
func WithConcurrency(limit int) Option {
	return func(n *Normalizer) {
		if limit > 0 {
			n.concurrency = limit
		}
	}
}

// NewNormalizer creates a Normalizer. pathOf resolves a stored asset name to a file path,
// usually (*storage.FileStore).Path.
func NewNormalizer(pathOf func(projectID int64, name string) string, opts ...Option) *Normalizer {
	n := &Normalizer{root: pathOf, concurrency: 2, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Load reads asset and returns its units. Stored files are never modified.
func (n *Normalizer) Load(ctx context.Context, asset *models.Asset) ([]models.NormalizedUnit, error) {
	path := n.root(asset.ProjectID, asset.Name)
	switch asset.Kind() {
	case models.AssetKindText:
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", asset.Name, err)
		}
		return []models.NormalizedUnit{textUnit(asset.Name, content)}, nil
	case models.AssetKindPDF:
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", asset.Name, err)
		}
		return n.loadPDF(ctx, asset.Name, content)
	case models.AssetKindImage:
		return n.loadSidecar(path, asset.Name)
	default:
		return nil, fmt.Errorf("unsupported asset type: %s", asset.Name)
	}
}
