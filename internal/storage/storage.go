// Package storage defines persistence for projects, assets, and chunks, and the on-disk asset store.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/docqa/internal/models"
)

// ErrNotFound is returned when a project, asset, or chunk does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines project, asset, and chunk persistence operations.
type Storage interface {
	// Project operations
	GetOrCreateProject(ctx context.Context, id int64) (*models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)

	// Asset operations
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, projectID, assetID int64) (*models.Asset, error)
	ListAssets(ctx context.Context, projectID int64) ([]*models.Asset, error)
	FindAssetByChecksum(ctx context.Context, projectID int64, checksum string) (*models.Asset, error)
	UpdateAssetConfig(ctx context.Context, assetID int64, cfg models.AssetConfig) error
	DeleteAsset(ctx context.Context, assetID int64) error

	// Chunk operations
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	// ListChunks returns up to limit chunks of a project with ID greater than afterID, ordered by ID.
	ListChunks(ctx context.Context, projectID, afterID int64, limit int) ([]*models.Chunk, error)
	GetChunksByAssetID(ctx context.Context, assetID int64) ([]*models.Chunk, error)
	DeleteChunksByProject(ctx context.Context, projectID int64) (int64, error)
	DeleteChunksByAsset(ctx context.Context, assetID int64) (int64, error)

	// Stats
	CountProjects(ctx context.Context) (int64, error)
	CountAssets(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
