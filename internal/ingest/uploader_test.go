package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/fileid"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeCaptioner struct {
	text string
	err  error
	n    int
}

func (f *fakeCaptioner) Caption(_ context.Context, image []byte) (string, error) {
	f.n++
	return f.text, f.err
}

func newTestUploader(t *testing.T, opts ...Option) (*Uploader, *storage.GormStorage, *storage.FileStore) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewGormStorage("sqlite", filepath.Join(dir, "docqa.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	files, err := storage.NewFileStore(filepath.Join(dir, "assets"))
	require.NoError(t, err)
	_, err = store.GetOrCreateProject(context.Background(), 1)
	require.NoError(t, err)
	return NewUploader(store, files, opts...), store, files
}

func TestUploader_Text(t *testing.T) {
	u, store, files := newTestUploader(t)
	asset, err := u.Upload(context.Background(), 1, "my notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	assert.NotZero(t, asset.ID)
	assert.True(t, strings.HasSuffix(asset.Name, "_my_notes.txt"), asset.Name)
	assert.Equal(t, "my notes.txt", asset.OriginalName)
	assert.Equal(t, int64(5), asset.Size)
	assert.Equal(t, fileid.ChecksumBytes([]byte("hello")), asset.Checksum)

	data, err := files.Bytes(1, asset.Name)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	n, err := store.CountAssets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUploader_Rejections(t *testing.T) {
	u, store, files := newTestUploader(t, WithAllowedExtensions([]string{".txt", ".pdf", ".png"}), WithMaxBytes(8))
	ctx := context.Background()

	_, err := u.Upload(ctx, 1, "slides.pptx", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = u.Upload(ctx, 1, "sheet.csv", strings.NewReader("a,b"))
	assert.ErrorIs(t, err, ErrUnsupportedType, "csv is known but not allowed here")
	_, err = u.Upload(ctx, 1, "fake.pdf", strings.NewReader("not pdf"))
	assert.ErrorIs(t, err, ErrContentMismatch)
	_, err = u.Upload(ctx, 1, "big.txt", strings.NewReader("more than eight bytes"))
	assert.ErrorIs(t, err, storage.ErrTooLarge)

	n, err := store.CountAssets(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	entries, err := os.ReadDir(files.ProjectDir(1))
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads must not stay on disk")
}

func TestUploader_ImageCaption(t *testing.T) {
	capt := &fakeCaptioner{text: "a red square"}
	u, _, files := newTestUploader(t, WithCaptioner(capt))

	asset, err := u.Upload(context.Background(), 1, "square.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, 1, capt.n)

	raw, err := os.ReadFile(models.SidecarPath(files.Path(1, asset.Name)))
	require.NoError(t, err)
	var sidecar models.CaptionSidecar
	require.NoError(t, json.Unmarshal(raw, &sidecar))
	assert.Equal(t, "a red square", sidecar.Caption)
	assert.Equal(t, "square.png", sidecar.Metadata[models.MetaSourceFile])
	assert.Equal(t, models.TypeImageCaptionUpload, sidecar.Metadata[models.MetaType])
}

func TestUploader_CaptionFailureKeepsUpload(t *testing.T) {
	u, _, files := newTestUploader(t, WithCaptioner(&fakeCaptioner{err: errors.New("vision down")}))

	asset, err := u.Upload(context.Background(), 1, "square.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	_, err = os.Stat(files.Path(1, asset.Name))
	assert.NoError(t, err)
	_, err = os.Stat(models.SidecarPath(files.Path(1, asset.Name)))
	assert.True(t, os.IsNotExist(err))
}

func TestUploader_XLSX(t *testing.T) {
	u, _, _ := newTestUploader(t)
	book := excelize.NewFile()
	require.NoError(t, book.SetSheetRow("Sheet1", "A1", &[]any{"region", "amount"}))
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	_, err := u.Upload(context.Background(), 1, "sales.xlsx", &buf)
	assert.NoError(t, err)
}

func TestUploader_UploadFileSkipsDuplicates(t *testing.T) {
	u, store, _ := newTestUploader(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes"), 0644))

	first, created, err := u.UploadFile(ctx, 1, path)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := u.UploadFile(ctx, 1, path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	n, err := store.CountAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
