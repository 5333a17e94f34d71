package watcher

import (
	"context"
	"sync"

	"github.com/hyperjump/docqa/internal/models"
	"go.uber.org/zap"
)

// FileUploader uploads a file from disk unless identical content already exists.
type FileUploader interface {
	UploadFile(ctx context.Context, projectID int64, path string) (*models.Asset, bool, error)
}

// ProjectStore resolves inbox projects, creating them on first use.
type ProjectStore interface {
	GetOrCreateProject(ctx context.Context, id int64) (*models.Project, error)
}

// UploadTo returns a FileFunc that uploads inbox files as project assets. Uploads run one at a
// time so duplicate content dropped twice is stored once. Failures are logged.
func UploadTo(ctx context.Context, projects ProjectStore, uploader FileUploader, logger *zap.Logger) FileFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	var mu sync.Mutex
	return func(project int64, path string) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if _, err := projects.GetOrCreateProject(ctx, project); err != nil {
			logger.Error("inbox project unavailable", zap.Int64("project_id", project), zap.Error(err))
			return
		}
		asset, created, err := uploader.UploadFile(ctx, project, path)
		if err != nil {
			logger.Warn("inbox upload failed", zap.Int64("project_id", project), zap.String("path", path), zap.Error(err))
			return
		}
		if !created {
			logger.Debug("inbox file already uploaded", zap.String("path", path), zap.Int64("asset_id", asset.ID))
			return
		}
		logger.Info("inbox file uploaded", zap.Int64("project_id", project), zap.String("path", path), zap.Int64("asset_id", asset.ID))
	}
}
