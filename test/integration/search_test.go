// Package integration runs the full pipeline against real Postgres with pgvector.
// Tests are skipped unless DOCQA_TEST_POSTGRES_DSN points at a database with the vector extension available.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/docqa/internal/answer/answertest"
	"github.com/hyperjump/docqa/internal/app"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/models"
)

func postgresConfig(t *testing.T) *config.Config {
	t.Helper()
	dsn := os.Getenv("DOCQA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCQA_TEST_POSTGRES_DSN not set")
	}
	dir := t.TempDir()
	cfg := &config.Config{
		Storage:   config.StorageConfig{Driver: "postgres", AssetsDir: filepath.Join(dir, "assets")},
		Postgres:  config.PostgresConfig{DSN: dsn},
		Tabular:   config.TabularConfig{Backend: "postgres"},
		Vector:    config.VectorConfig{Backend: "pgvector"},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 16},
	}
	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestIntegration_PostgresHybridAnswer(t *testing.T) {
	cfg := postgresConfig(t)
	ctx := context.Background()
	c, err := app.New(ctx, cfg, nil, app.WithGenerator(answertest.NewGenerator()), app.WithCaptioner(nil))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	defer c.Close()

	// Unique per run so a shared database does not leak state between runs.
	projectID := time.Now().UnixNano() % 1_000_000_000
	project, err := c.Storage.GetOrCreateProject(ctx, projectID)
	if err != nil {
		t.Fatal(err)
	}
	asset, err := c.Uploader.Upload(ctx, project.ID, "sales.csv", strings.NewReader("region,amount\nnorth,10\nsouth,20\n"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Processor.DeleteAsset(context.Background(), project, asset.ID); err != nil {
			t.Logf("cleanup: %v", err)
		}
	})

	proc, err := c.Processor.Process(ctx, project, models.ProcessRequest{
		ChunkSize:   cfg.Processing.ChunkSize,
		OverlapSize: cfg.Processing.OverlapSize,
		DoReset:     true,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.ProcessedFiles != 1 {
		t.Fatalf("unexpected process result: %+v", proc)
	}
	push, err := c.Indexer.Push(ctx, project, true)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if push.InsertedCount != proc.InsertedChunks {
		t.Fatalf("pushed %d of %d chunks", push.InsertedCount, proc.InsertedChunks)
	}

	ans, err := c.Pipeline.Ask(ctx, project, "How many sales are there?", cfg.Answer.DefaultLimit)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.Branch != models.BranchHybrid {
		t.Fatalf("branch = %s, trace %v", ans.Branch, ans.Trace)
	}
	if !strings.Contains(ans.Text, "| 2 |") {
		t.Errorf("answer = %q", ans.Text)
	}
}
