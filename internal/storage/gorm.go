package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

const chunkInsertBatch = 200

// GormStorage implements Storage on gorm over SQLite or Postgres.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage opens the metadata database and migrates the schema.
// driver is "sqlite" (dsn is a file path) or "postgres" (dsn is a connection string).
func NewGormStorage(driver, dsn string, logger *zap.Logger) (*GormStorage, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn + "?_journal_mode=WAL&_busy_timeout=5000")
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(utils.StdLogger(logger, "gorm"), gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.Project{}, &models.Asset{}, &models.Chunk{}); err != nil {
		closeGorm(db)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &GormStorage{db: db}, nil
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// GetOrCreateProject returns the project with id, creating it with a fresh UUID on first use.
func (s *GormStorage) GetOrCreateProject(ctx context.Context, id int64) (*models.Project, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid project id: %d", id)
	}
	var p models.Project
	err := s.db.WithContext(ctx).
		Where(models.Project{ID: id}).
		Attrs(models.Project{UUID: uuid.NewString()}).
		FirstOrCreate(&p).Error
	if err != nil {
		// A concurrent creator may have won the insert.
		if got, getErr := s.GetProject(ctx, id); getErr == nil {
			return got, nil
		}
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}
	return &p, nil
}

// GetProject returns a project by ID.
func (s *GormStorage) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: project %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateAsset inserts an asset and sets its ID.
func (s *GormStorage) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

// GetAsset returns an asset of a project.
func (s *GormStorage) GetAsset(ctx context.Context, projectID, assetID int64) (*models.Asset, error) {
	var a models.Asset
	err := s.db.WithContext(ctx).First(&a, "id = ? AND project_id = ?", assetID, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: asset %d", ErrNotFound, assetID)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssets returns every asset of a project ordered by ID.
func (s *GormStorage) ListAssets(ctx context.Context, projectID int64) ([]*models.Asset, error) {
	var out []*models.Asset
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindAssetByChecksum returns the first asset of a project with the given checksum.
func (s *GormStorage) FindAssetByChecksum(ctx context.Context, projectID int64, checksum string) (*models.Asset, error) {
	var out []*models.Asset
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND checksum = ?", projectID, checksum).
		Order("id ASC").Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: asset with checksum %s", ErrNotFound, checksum)
	}
	return out[0], nil
}

// UpdateAssetConfig replaces the JSON config of an asset.
func (s *GormStorage) UpdateAssetConfig(ctx context.Context, assetID int64, cfg models.AssetConfig) error {
	res := s.db.WithContext(ctx).Model(&models.Asset{}).
		Where("id = ?", assetID).
		Update("config", datatypes.NewJSONType(cfg))
	if res.Error != nil {
		return fmt.Errorf("failed to update asset config: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: asset %d", ErrNotFound, assetID)
	}
	return nil
}

// DeleteAsset removes an asset record. Its chunks must be removed separately.
func (s *GormStorage) DeleteAsset(ctx context.Context, assetID int64) error {
	return s.db.WithContext(ctx).Delete(&models.Asset{}, assetID).Error
}

// BatchCreateChunks inserts chunks in one transaction and sets their IDs.
func (s *GormStorage) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if c.UUID == "" {
			c.UUID = uuid.NewString()
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(chunks, chunkInsertBatch).Error; err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		return nil
	})
}

// ListChunks returns a page of a project's chunks after afterID, ordered by ID.
func (s *GormStorage) ListChunks(ctx context.Context, projectID, afterID int64, limit int) ([]*models.Chunk, error) {
	var out []*models.Chunk
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND id > ?", projectID, afterID).
		Order("id ASC").Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetChunksByAssetID returns an asset's chunks in order.
func (s *GormStorage) GetChunksByAssetID(ctx context.Context, assetID int64) ([]*models.Chunk, error) {
	var out []*models.Chunk
	if err := s.db.WithContext(ctx).Where("asset_id = ?", assetID).Order("chunk_order ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteChunksByProject removes every chunk of a project and returns the count removed.
func (s *GormStorage) DeleteChunksByProject(ctx context.Context, projectID int64) (int64, error) {
	res := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Chunk{})
	return res.RowsAffected, res.Error
}

// DeleteChunksByAsset removes every chunk of an asset and returns the count removed.
func (s *GormStorage) DeleteChunksByAsset(ctx context.Context, assetID int64) (int64, error) {
	res := s.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&models.Chunk{})
	return res.RowsAffected, res.Error
}

// CountProjects returns the number of projects.
func (s *GormStorage) CountProjects(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Project{}).Count(&n).Error
	return n, err
}

// CountAssets returns the number of assets.
func (s *GormStorage) CountAssets(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Asset{}).Count(&n).Error
	return n, err
}

// CountChunks returns the number of chunks.
func (s *GormStorage) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Chunk{}).Count(&n).Error
	return n, err
}

// Close closes the underlying connection pool.
func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
