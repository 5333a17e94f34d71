package e2e

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docqa/internal/ingest"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/tabular"
)

func TestWriteMinimalFile_AllExtensionsAccepted(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewGormStorage("sqlite", filepath.Join(dir, "docqa.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	files, err := storage.NewFileStore(filepath.Join(dir, "assets"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := store.GetOrCreateProject(ctx, 1); err != nil {
		t.Fatal(err)
	}
	u := ingest.NewUploader(store, files)

	sample := "E2E searchable content"
	for _, ext := range SupportedFileExtensions {
		t.Run(ext, func(t *testing.T) {
			content, err := WriteMinimalFile(ext, sample)
			if err != nil {
				t.Fatalf("WriteMinimalFile: %v", err)
			}
			asset, err := u.Upload(ctx, 1, "fixture"+ext, bytes.NewReader(content))
			if err != nil {
				t.Fatalf("upload rejected: %v", err)
			}
			if ext != ".csv" && ext != ".xlsx" {
				return
			}
			sheets, err := tabular.LoadSheets(files.Path(1, asset.Name))
			if err != nil {
				t.Fatal(err)
			}
			if len(sheets) != 1 || len(sheets[0].Rows) != 1 || sheets[0].Rows[0][1] != sample {
				t.Errorf("unexpected sheets: %+v", sheets)
			}
		})
	}
	if _, err := WriteMinimalFile(".docx", sample); err == nil {
		t.Error("unsupported extension should fail")
	}
}
