// Package app wires the configured storage, model providers, and pipelines into one set of components.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/answer"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/ingest"
	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/prompts"
	"github.com/hyperjump/docqa/internal/server"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/tabular"
	"github.com/hyperjump/docqa/internal/vector"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// Components holds initialized services.
type Components struct {
	Storage   *storage.GormStorage
	Files     *storage.FileStore
	Tables    tabular.Store
	Vectors   vector.Store
	Embedder  embedding.Embedder
	Generator llm.Generator
	Captioner llm.Captioner
	Uploader  *ingest.Uploader
	Indexer   *indexer.Indexer
	Processor *indexer.Processor
	Pipeline  *answer.Pipeline

	pool *pgxpool.Pool
}

// Option overrides a provider, mostly for tests and offline runs.
type Option func(*overrides)

type overrides struct {
	generator   llm.Generator
	embedder    embedding.Embedder
	captioner   llm.Captioner
	noCaptioner bool
}

// WithGenerator replaces the configured text generation provider.
func WithGenerator(g llm.Generator) Option {
	return func(o *overrides) { o.generator = g }
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *overrides) { o.embedder = e }
}

// WithCaptioner replaces the configured vision provider. A nil captioner disables vision.
func WithCaptioner(c llm.Captioner) Option {
	return func(o *overrides) {
		o.captioner = c
		o.noCaptioner = c == nil
	}
}

// New builds every component from cfg. On error, whatever was opened is closed again.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (_ *Components, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}

	c := &Components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	storeDSN := cfg.Storage.DatabasePath
	if cfg.Storage.Driver == "postgres" {
		storeDSN = cfg.Postgres.DSN
	}
	c.Storage, err = storage.NewGormStorage(cfg.Storage.Driver, storeDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Files, err = storage.NewFileStore(cfg.Storage.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize asset store: %w", err)
	}

	if cfg.Tabular.Backend == "postgres" || cfg.Vector.Backend == vector.BackendPgvector {
		c.pool, err = openPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
	}
	switch cfg.Tabular.Backend {
	case "postgres":
		c.Tables = tabular.NewPostgresStoreFromPool(c.pool, cfg.Postgres.QueryTimeout, logger)
	default:
		c.Tables, err = tabular.NewSQLiteStore(cfg.Tabular.SQLitePath, cfg.Postgres.QueryTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tabular store: %w", err)
		}
	}

	c.Vectors, err = vector.NewStore(ctx, cfg.Vector, c.pool, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	c.Embedder = o.embedder
	if c.Embedder == nil {
		c.Embedder, err = embedding.New(cfg.Embedding, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}

	c.Generator = o.generator
	if c.Generator == nil {
		client := llm.NewClient(cfg.Generation.BaseURL, cfg.Generation.APIKey, clientOptions(cfg.Generation, logger)...)
		c.Generator = llm.NewChatGenerator(client, cfg.Generation)
	}

	switch {
	case o.captioner != nil:
		c.Captioner = o.captioner
	case o.noCaptioner:
	case visionConfigured(cfg.Vision):
		client := llm.NewClient(cfg.Vision.BaseURL, cfg.Vision.APIKey, clientOptions(cfg.Generation, logger)...)
		c.Captioner = llm.NewVisionCaptioner(client, cfg.Vision)
	default:
		logger.Info("vision provider not configured; image captions disabled")
	}

	uploadOpts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithAllowedExtensions(cfg.Files.AllowedExtensions),
		ingest.WithMaxBytes(cfg.Files.MaxSizeBytes()),
	}
	normOpts := []extract.Option{extract.WithLogger(logger), extract.WithConcurrency(cfg.Vision.Concurrency)}
	if c.Captioner != nil {
		uploadOpts = append(uploadOpts, ingest.WithCaptioner(c.Captioner))
		normOpts = append(normOpts, extract.WithCaptioner(c.Captioner))
	}
	c.Uploader = ingest.NewUploader(c.Storage, c.Files, uploadOpts...)

	locks := indexer.NewProjectLocks()
	c.Indexer = indexer.NewIndexer(c.Storage, c.Embedder, c.Vectors,
		indexer.WithLogger(logger),
		indexer.WithLocks(locks),
		indexer.WithPageSize(cfg.Processing.IndexPageSize))
	materializer := tabular.NewMaterializer(c.Tables,
		tabular.WithLogger(logger),
		tabular.WithSampleRows(cfg.Processing.SampleRows))
	c.Processor = indexer.NewProcessor(c.Storage, c.Files, extract.NewNormalizer(c.Files.Path, normOpts...),
		materializer, c.Indexer, locks,
		indexer.WithProcessorLogger(logger),
		indexer.WithChunkDefaults(cfg.Processing.ChunkSize, cfg.Processing.OverlapSize))

	c.Pipeline = answer.NewPipeline(c.Generator, c.Indexer, prompts.NewRegistry(cfg.Answer.Language),
		answer.WithLogger(logger),
		answer.WithTables(c.Tables))

	logger.Info("components initialized",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("tabular", c.Tables.Dialect()),
		zap.String("vector", cfg.Vector.Backend),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.Bool("vision", c.Captioner != nil))
	return c, nil
}

// Services returns the handler dependencies of the HTTP server.
func (c *Components) Services() server.Services {
	return server.Services{
		Storage:   c.Storage,
		Uploader:  c.Uploader,
		Processor: c.Processor,
		Indexer:   c.Indexer,
		Pipeline:  c.Pipeline,
		Captioner: c.Captioner,
	}
}

// Close releases every opened component. It is safe on a partially built set.
func (c *Components) Close() {
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Tables != nil {
		_ = c.Tables.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func openPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", tabular.ErrUnavailable, err)
	}
	return pool, nil
}

func clientOptions(cfg config.GenerationConfig, logger *zap.Logger) []llm.Option {
	policy := llm.DefaultRetryPolicy()
	policy.MaxRetries = cfg.MaxRetries
	opts := []llm.Option{
		llm.WithLogger(logger),
		llm.WithTimeout(cfg.Timeout),
		llm.WithRetryPolicy(policy),
	}
	if cfg.RequestsPerSecond > 0 {
		opts = append(opts, llm.WithRateLimit(cfg.RequestsPerSecond))
	}
	return opts
}

// visionConfigured reports whether captions can be requested. The hosted default needs a key;
// a self-hosted endpoint may not.
func visionConfigured(cfg config.VisionConfig) bool {
	if cfg.APIKey != "" {
		return true
	}
	return cfg.BaseURL != "" && strings.TrimRight(cfg.BaseURL, "/") != defaultOpenAIBaseURL
}
