package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docqa/internal/models"
	"gorm.io/datatypes"
)

func newTestStorage(t *testing.T) *GormStorage {
	t.Helper()
	store, err := NewGormStorage("sqlite", filepath.Join(t.TempDir(), "db", "test.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGormStorage_projects(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	p1, err := store.GetOrCreateProject(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if p1.ID != 7 || p1.UUID == "" {
		t.Errorf("unexpected project: %+v", p1)
	}
	p2, err := store.GetOrCreateProject(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if p2.UUID != p1.UUID {
		t.Errorf("second call should return the same project, got uuid %s vs %s", p2.UUID, p1.UUID)
	}
	other, err := store.GetOrCreateProject(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if other.UUID == p1.UUID {
		t.Error("distinct projects should get distinct uuids")
	}
	if _, err := store.GetProject(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing project: got %v, want ErrNotFound", err)
	}
	if _, err := store.GetOrCreateProject(ctx, 0); err == nil {
		t.Error("project id 0 should be rejected")
	}
	n, err := store.CountProjects(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountProjects = %d, %v", n, err)
	}
}

func TestGormStorage_assets(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	asset := &models.Asset{ProjectID: 1, Name: "abc_sales.csv", OriginalName: "sales.csv", Size: 10, Checksum: "sum1"}
	if err := store.CreateAsset(ctx, asset); err != nil {
		t.Fatal(err)
	}
	if asset.ID == 0 {
		t.Fatal("asset ID should be set")
	}

	cfg := models.AssetConfig{PgsqlTables: []models.TableMapping{{SheetKey: "csv_data_sales", DBTableName: "pgdata_proj1_asset1_csv_data_sales"}}}
	if err := store.UpdateAssetConfig(ctx, asset.ID, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetAsset(ctx, 1, asset.ID)
	if err != nil {
		t.Fatal(err)
	}
	if names := got.Config.Data().TableNames(); len(names) != 1 || names[0] != "pgdata_proj1_asset1_csv_data_sales" {
		t.Errorf("config round trip: %v", names)
	}
	if _, err := store.GetAsset(ctx, 2, asset.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("asset of another project: got %v", err)
	}

	dup, err := store.FindAssetByChecksum(ctx, 1, "sum1")
	if err != nil || dup.ID != asset.ID {
		t.Errorf("FindAssetByChecksum = %+v, %v", dup, err)
	}
	if _, err := store.FindAssetByChecksum(ctx, 2, "sum1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("checksum lookup is project scoped, got %v", err)
	}

	second := &models.Asset{ProjectID: 1, Name: "b.txt", Config: datatypes.NewJSONType(models.AssetConfig{})}
	if err := store.CreateAsset(ctx, second); err != nil {
		t.Fatal(err)
	}
	list, err := store.ListAssets(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != asset.ID {
		t.Errorf("ListAssets: %+v", list)
	}

	if err := store.DeleteAsset(ctx, asset.ID); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountAssets(ctx); n != 1 {
		t.Errorf("CountAssets after delete = %d", n)
	}
	if err := store.UpdateAssetConfig(ctx, asset.ID, cfg); !errors.Is(err, ErrNotFound) {
		t.Errorf("update deleted asset: got %v", err)
	}
}

func TestGormStorage_chunks(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	var chunks []*models.Chunk
	for i := 1; i <= 5; i++ {
		assetID := int64(1)
		if i > 3 {
			assetID = 2
		}
		chunks = append(chunks, &models.Chunk{
			Text:      "chunk",
			Metadata:  map[string]any{models.MetaType: models.TypeTextDocument},
			Order:     i,
			ProjectID: 1,
			AssetID:   assetID,
		})
	}
	chunks = append(chunks, &models.Chunk{Text: "other", Order: 1, ProjectID: 2, AssetID: 3})
	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	for _, c := range chunks {
		if c.ID == 0 || c.UUID == "" {
			t.Fatalf("chunk not assigned ids: %+v", c)
		}
	}

	page, err := store.ListChunks(ctx, 1, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("first page: %d", len(page))
	}
	rest, err := store.ListChunks(ctx, 1, page[1].ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 3 {
		t.Errorf("second page: %d, want 3", len(rest))
	}
	if rest[0].Metadata[models.MetaType] != models.TypeTextDocument {
		t.Errorf("metadata round trip: %v", rest[0].Metadata)
	}

	byAsset, err := store.GetChunksByAssetID(ctx, 2)
	if err != nil || len(byAsset) != 2 || byAsset[0].Order != 4 {
		t.Errorf("GetChunksByAssetID = %+v, %v", byAsset, err)
	}

	n, err := store.DeleteChunksByAsset(ctx, 2)
	if err != nil || n != 2 {
		t.Errorf("DeleteChunksByAsset = %d, %v", n, err)
	}
	n, err = store.DeleteChunksByProject(ctx, 1)
	if err != nil || n != 3 {
		t.Errorf("DeleteChunksByProject = %d, %v", n, err)
	}
	if total, _ := store.CountChunks(ctx); total != 1 {
		t.Errorf("remaining chunks = %d, want 1", total)
	}
}

func TestNewGormStorage_unknownDriver(t *testing.T) {
	if _, err := NewGormStorage("mysql", "x", nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}
