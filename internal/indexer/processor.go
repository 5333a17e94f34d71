package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/tabular"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ErrNoAssets is returned when a project has nothing to process.
var ErrNoAssets = errors.New("no assets to process")

// Loader loads a stored asset into normalized units.
type Loader interface {
	Load(ctx context.Context, asset *models.Asset) ([]models.NormalizedUnit, error)
}

// Processor turns a project's assets into persisted chunks.
type Processor struct {
	storage      storage.Storage
	files        *storage.FileStore
	loader       Loader
	materializer *tabular.Materializer
	indexer      *Indexer
	locks        *ProjectLocks
	chunkSize    int
	overlapSize  int
	logger       *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the logger.
func WithProcessorLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithChunkDefaults sets the chunk and overlap sizes used when a request leaves them zero.
func WithChunkDefaults(chunkSize, overlapSize int) ProcessorOption {
	return func(p *Processor) {
		p.chunkSize, p.overlapSize = chunkSize, overlapSize
	}
}

// NewProcessor wires a processor. materializer may be nil, in which case tabular assets are skipped.
// A nil locks uses the indexer's lock set.
func NewProcessor(
	store storage.Storage,
	files *storage.FileStore,
	loader Loader,
	materializer *tabular.Materializer,
	idx *Indexer,
	locks *ProjectLocks,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		storage:      store,
		files:        files,
		loader:       loader,
		materializer: materializer,
		indexer:      idx,
		locks:        locks,
		chunkSize:    512,
		overlapSize:  50,
		logger:       zap.NewNop(),
	}
	if p.locks == nil && idx != nil {
		p.locks = idx.locks
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process chunks every asset of the project. Zero sizes in req fall back to the processor
// defaults. Without reset, assets that already have chunks are
// skipped. Per-asset load failures are logged and counted; only relational store unavailability
// aborts the run.
func (p *Processor) Process(ctx context.Context, project *models.Project, req models.ProcessRequest) (*models.ProcessResult, error) {
	unlock := p.locks.Lock(project.ID)
	defer unlock()

	assets, err := p.storage.ListAssets(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	if len(assets) == 0 {
		return nil, ErrNoAssets
	}
	if req.DoReset {
		if err := p.reset(ctx, project, assets); err != nil {
			return nil, err
		}
	}

	chunkSize, overlap := req.ChunkSize, req.OverlapSize
	if chunkSize <= 0 {
		chunkSize = p.chunkSize
	}
	if overlap <= 0 {
		overlap = p.overlapSize
	}
	chunker := NewChunker(chunkSize, overlap)

	res := &models.ProcessResult{}
	for _, asset := range assets {
		if !req.DoReset {
			existing, err := p.storage.GetChunksByAssetID(ctx, asset.ID)
			if err != nil {
				return res, fmt.Errorf("failed to check chunks: %w", err)
			}
			if len(existing) > 0 {
				res.SkippedFiles++
				continue
			}
		}
		drafts, err := p.draftsFor(ctx, project, asset, chunker)
		if errors.Is(err, tabular.ErrUnavailable) {
			return res, err
		}
		if err != nil {
			p.logger.Warn("asset processing failed", zap.Int64("asset_id", asset.ID), zap.String("asset", asset.Name), zap.Error(err))
			res.SkippedFiles++
			continue
		}
		n, err := p.persist(ctx, project.ID, asset.ID, drafts)
		if err != nil {
			return res, err
		}
		res.InsertedChunks += n
		res.ProcessedFiles++
	}
	p.logger.Info("project processed",
		zap.Int64("project_id", project.ID),
		zap.Int("inserted_chunks", res.InsertedChunks),
		zap.Int("processed_files", res.ProcessedFiles),
		zap.Int("skipped_files", res.SkippedFiles))
	return res, nil
}

func (p *Processor) draftsFor(ctx context.Context, project *models.Project, asset *models.Asset, chunker *Chunker) ([]models.ChunkDraft, error) {
	if asset.Kind() != models.AssetKindTabular {
		units, err := p.loader.Load(ctx, asset)
		if err != nil {
			return nil, err
		}
		return chunker.Chunk(units), nil
	}
	if p.materializer == nil {
		return nil, fmt.Errorf("tabular store not configured")
	}
	// Drop tables left by an earlier run before they are recreated under the same names.
	if old := asset.Config.Data().TableNames(); len(old) > 0 {
		if err := p.materializer.DropTables(ctx, old); err != nil {
			return nil, err
		}
	}
	tables, err := p.materializer.Materialize(ctx, p.files.Path(project.ID, asset.Name), project.ID, asset.ID)
	cfg := models.AssetConfig{}
	for _, t := range tables {
		cfg.PgsqlTables = append(cfg.PgsqlTables, t.Mapping())
	}
	if uerr := p.storage.UpdateAssetConfig(ctx, asset.ID, cfg); uerr != nil {
		return nil, fmt.Errorf("failed to save table mapping: %w", uerr)
	}
	if err != nil {
		return nil, err
	}
	return p.materializer.SchemaChunks(ctx, tables), nil
}

func (p *Processor) persist(ctx context.Context, projectID, assetID int64, drafts []models.ChunkDraft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}
	chunks := make([]*models.Chunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = &models.Chunk{
			UUID:      uuid.NewString(),
			Text:      d.Text,
			Metadata:  datatypes.JSONMap(d.Metadata),
			Order:     i + 1,
			ProjectID: projectID,
			AssetID:   assetID,
		}
	}
	if err := p.storage.BatchCreateChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}
	return len(chunks), nil
}

// reset clears the collection, chunks, and materialized tables of a project.
func (p *Processor) reset(ctx context.Context, project *models.Project, assets []*models.Asset) error {
	if p.indexer != nil {
		if err := p.indexer.DeleteCollection(ctx, project); err != nil {
			return err
		}
	}
	n, err := p.storage.DeleteChunksByProject(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	for _, a := range assets {
		names := a.Config.Data().TableNames()
		if len(names) == 0 || p.materializer == nil {
			continue
		}
		if err := p.materializer.DropTables(ctx, names); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		if err := p.storage.UpdateAssetConfig(ctx, a.ID, models.AssetConfig{}); err != nil {
			return fmt.Errorf("failed to clear table mapping: %w", err)
		}
		a.Config = datatypes.NewJSONType(models.AssetConfig{})
	}
	p.logger.Info("project reset", zap.Int64("project_id", project.ID), zap.Int64("deleted_chunks", n))
	return nil
}

// DeleteAsset removes an asset with its tables, vectors, chunks, and stored file.
func (p *Processor) DeleteAsset(ctx context.Context, project *models.Project, assetID int64) error {
	unlock := p.locks.Lock(project.ID)
	defer unlock()

	asset, err := p.storage.GetAsset(ctx, project.ID, assetID)
	if err != nil {
		return err
	}
	if names := asset.Config.Data().TableNames(); len(names) > 0 && p.materializer != nil {
		if err := p.materializer.DropTables(ctx, names); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}
	chunks, err := p.storage.GetChunksByAssetID(ctx, asset.ID)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	if p.indexer != nil {
		if err := p.indexer.DeleteChunkVectors(ctx, project, chunks); err != nil {
			return err
		}
	}
	if _, err := p.storage.DeleteChunksByAsset(ctx, asset.ID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := p.files.Remove(project.ID, asset.Name); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	if err := p.storage.DeleteAsset(ctx, asset.ID); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	p.logger.Info("asset deleted", zap.Int64("project_id", project.ID), zap.Int64("asset_id", asset.ID), zap.Int("chunks", len(chunks)))
	return nil
}
