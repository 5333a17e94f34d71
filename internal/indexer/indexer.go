// Package indexer turns assets into chunks and pushes chunks into project vector collections.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/vector"
	"go.uber.org/zap"
)

// ErrIndexingFailed is returned when a push aborts part way.
var ErrIndexingFailed = errors.New("indexing failed")

const defaultPageSize = 50

// Indexer embeds persisted chunks and upserts them into the project's collection.
type Indexer struct {
	storage  storage.Storage
	embedder embedding.Embedder
	vectors  vector.Store
	locks    *ProjectLocks
	pageSize int
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithPageSize sets how many chunks are embedded and upserted per batch.
func WithPageSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.pageSize = n
		}
	}
}

// WithLocks shares the project lock set with the processor so pushes are serialized with
// processing and asset deletion.
func WithLocks(l *ProjectLocks) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.locks = l
		}
	}
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(store storage.Storage, embedder embedding.Embedder, vectors vector.Store, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:  store,
		embedder: embedder,
		vectors:  vectors,
		locks:    NewProjectLocks(),
		pageSize: defaultPageSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Collection returns the collection name of project.
func (idx *Indexer) Collection(project *models.Project) string {
	return CollectionName(project.UUID, idx.embedder.Dimensions())
}

// CreateCollection ensures the project's collection exists. With doReset it is recreated empty.
func (idx *Indexer) CreateCollection(ctx context.Context, project *models.Project, doReset bool) (bool, error) {
	name := idx.Collection(project)
	created, err := idx.vectors.CreateCollection(ctx, name, idx.embedder.Dimensions(), doReset)
	if err != nil {
		return false, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	if created {
		idx.logger.Info("collection created", zap.String("collection", name), zap.Bool("reset", doReset))
	}
	return created, nil
}

// DeleteCollection removes the project's collection.
func (idx *Indexer) DeleteCollection(ctx context.Context, project *models.Project) error {
	if err := idx.vectors.DeleteCollection(ctx, idx.Collection(project)); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Push embeds every chunk of the project, one page at a time in ID order. A failing page aborts
// the push; the result still reports what was inserted before it. The project lock is held
// throughout.
func (idx *Indexer) Push(ctx context.Context, project *models.Project, doReset bool) (*models.PushResult, error) {
	unlock := idx.locks.Lock(project.ID)
	defer unlock()

	res := &models.PushResult{Collection: idx.Collection(project)}
	if _, err := idx.CreateCollection(ctx, project, doReset); err != nil {
		return res, fmt.Errorf("%w: %w", ErrIndexingFailed, err)
	}
	var afterID int64
	for {
		chunks, err := idx.storage.ListChunks(ctx, project.ID, afterID, idx.pageSize)
		if err != nil {
			return res, fmt.Errorf("%w: failed to list chunks: %w", ErrIndexingFailed, err)
		}
		if len(chunks) == 0 {
			break
		}
		if err := idx.pushPage(ctx, res.Collection, chunks); err != nil {
			idx.logger.Error("push page failed",
				zap.String("collection", res.Collection),
				zap.Int64("after_id", afterID),
				zap.Int("inserted", res.InsertedCount),
				zap.Error(err))
			return res, fmt.Errorf("%w: %w", ErrIndexingFailed, err)
		}
		res.InsertedCount += len(chunks)
		afterID = chunks[len(chunks)-1].ID
	}
	idx.logger.Info("push complete", zap.String("collection", res.Collection), zap.Int("inserted", res.InsertedCount))
	return res, nil
}

func (idx *Indexer) pushPage(ctx context.Context, collection string, chunks []*models.Chunk) error {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vecs, err := idx.embedder.Embed(ctx, texts, embedding.ModeDocument)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("failed to embed chunks: got %d vectors for %d chunks", len(vecs), len(chunks))
	}
	records := make([]vector.Record, len(chunks))
	for i, ch := range chunks {
		meta := make(map[string]any, len(ch.Metadata))
		for k, v := range ch.Metadata {
			meta[k] = v
		}
		records[i] = vector.Record{ID: chunkRecordID(ch.ID), Vector: vecs[i], Text: ch.Text, Metadata: meta}
	}
	if err := idx.vectors.Upsert(ctx, collection, records); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return nil
}

// Info returns the project's collection info.
func (idx *Indexer) Info(ctx context.Context, project *models.Project) (*vector.CollectionInfo, error) {
	return idx.vectors.Info(ctx, idx.Collection(project))
}

// EmbedQuery embeds a question in query mode.
func (idx *Indexer) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := idx.embedder.Embed(ctx, []string{text}, embedding.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}

// SearchVector returns the nearest chunks to vec in the project's collection.
func (idx *Indexer) SearchVector(ctx context.Context, project *models.Project, vec []float32, limit int) ([]models.RetrievedChunk, error) {
	hits, err := idx.vectors.Search(ctx, idx.Collection(project), vec, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	out := make([]models.RetrievedChunk, len(hits))
	for i, h := range hits {
		out[i] = models.RetrievedChunk{ID: h.ID, Text: h.Text, Score: h.Score, Metadata: h.Metadata}
	}
	return out, nil
}

// Search embeds text and returns the raw nearest chunks.
func (idx *Indexer) Search(ctx context.Context, project *models.Project, text string, limit int) ([]models.RetrievedChunk, error) {
	vec, err := idx.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, nil
	}
	return idx.SearchVector(ctx, project, vec, limit)
}

// DeleteChunkVectors removes the vectors of the given chunks. A missing collection is not an error.
func (idx *Indexer) DeleteChunkVectors(ctx context.Context, project *models.Project, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = chunkRecordID(ch.ID)
	}
	err := idx.vectors.Delete(ctx, idx.Collection(project), ids)
	if err != nil && !errors.Is(err, vector.ErrCollectionNotFound) {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

func chunkRecordID(id int64) string {
	return strconv.FormatInt(id, 10)
}
