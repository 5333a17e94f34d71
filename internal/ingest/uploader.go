// Package ingest stores uploaded files as project assets.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hyperjump/docqa/internal/fileid"
	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedType is returned for extensions outside the allow list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrContentMismatch is returned when the sniffed content does not fit the extension.
	ErrContentMismatch = errors.New("file content does not match its extension")
)

// Uploader validates, stores, and records uploaded files.
type Uploader struct {
	storage   storage.Storage
	files     *storage.FileStore
	captioner llm.Captioner
	allowed   map[string]bool
	maxBytes  int64
	logger    *zap.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithCaptioner captions image uploads into a sidecar file.
func WithCaptioner(c llm.Captioner) Option {
	return func(u *Uploader) { u.captioner = c }
}

// WithAllowedExtensions restricts uploads to the given extensions (with leading dot).
func WithAllowedExtensions(exts []string) Option {
	return func(u *Uploader) {
		u.allowed = make(map[string]bool, len(exts))
		for _, e := range exts {
			u.allowed[strings.ToLower(e)] = true
		}
	}
}

// WithMaxBytes sets the per-file size limit. Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(u *Uploader) { u.maxBytes = n }
}

// NewUploader creates an uploader. Without WithAllowedExtensions every known asset kind is accepted.
func NewUploader(store storage.Storage, files *storage.FileStore, opts ...Option) *Uploader {
	u := &Uploader{storage: store, files: files, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Validate checks the file name against the allow list.
func (u *Uploader) Validate(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if models.KindForName(name) == models.AssetKindUnknown {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if u.allowed != nil && !u.allowed[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return nil
}

// Upload stores r as a new asset of the project. Images are captioned when a captioner is set;
// a caption failure is logged and the upload is kept.
func (u *Uploader) Upload(ctx context.Context, projectID int64, name string, r io.Reader) (*models.Asset, error) {
	if err := u.Validate(name); err != nil {
		return nil, err
	}
	stored, size, err := u.files.Save(projectID, name, r, u.maxBytes)
	if err != nil {
		return nil, err
	}
	path := u.files.Path(projectID, stored)
	discard := func() {
		if err := u.files.Remove(projectID, stored); err != nil {
			u.logger.Warn("failed to remove rejected upload", zap.String("file", stored), zap.Error(err))
		}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		discard()
		return nil, fmt.Errorf("failed to detect content type: %w", err)
	}
	if !matchesKind(name, mt) {
		discard()
		return nil, fmt.Errorf("%w: %s is %s", ErrContentMismatch, name, mt.String())
	}
	sum, err := fileid.ChecksumFile(path)
	if err != nil {
		discard()
		return nil, err
	}
	if models.KindForName(name) == models.AssetKindImage {
		u.caption(ctx, projectID, stored, name, path)
	}

	asset := &models.Asset{
		ProjectID:    projectID,
		Name:         stored,
		OriginalName: name,
		Size:         size,
		Checksum:     sum,
	}
	if err := u.storage.CreateAsset(ctx, asset); err != nil {
		discard()
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}
	u.logger.Info("asset uploaded",
		zap.Int64("project_id", projectID),
		zap.Int64("asset_id", asset.ID),
		zap.String("file", stored),
		zap.String("mime", mt.String()))
	return asset, nil
}

// UploadFile uploads the file at path unless the project already holds identical content.
// The returned bool reports whether a new asset was created.
func (u *Uploader) UploadFile(ctx context.Context, projectID int64, path string) (*models.Asset, bool, error) {
	sum, err := fileid.ChecksumFile(path)
	if err != nil {
		return nil, false, err
	}
	existing, err := u.storage.FindAssetByChecksum(ctx, projectID, sum)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	asset, err := u.Upload(ctx, projectID, filepath.Base(path), f)
	if err != nil {
		return nil, false, err
	}
	return asset, true, nil
}

func (u *Uploader) caption(ctx context.Context, projectID int64, stored, original, path string) {
	if u.captioner == nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		u.logger.Error("failed to read image for caption", zap.String("file", stored), zap.Error(err))
		return
	}
	text, err := u.captioner.Caption(ctx, data)
	if err != nil {
		u.logger.Error("failed to caption image", zap.String("file", original), zap.Error(err))
		return
	}
	sidecar := models.CaptionSidecar{
		Caption: text,
		Metadata: map[string]any{
			models.MetaSourceFile: original,
			models.MetaType:       models.TypeImageCaptionUpload,
		},
	}
	if err := u.files.WriteCaptionSidecar(projectID, stored, sidecar); err != nil {
		u.logger.Error("failed to write caption sidecar", zap.String("file", stored), zap.Error(err))
	}
}

// matchesKind reports whether sniffed content fits the file's extension.
func matchesKind(name string, mt *mimetype.MIME) bool {
	switch models.KindForName(name) {
	case models.AssetKindText, models.AssetKindTabular:
		want := "text/plain"
		if strings.EqualFold(filepath.Ext(name), ".xlsx") {
			want = "application/zip"
		}
		for m := mt; m != nil; m = m.Parent() {
			if m.Is(want) {
				return true
			}
		}
		return false
	case models.AssetKindPDF:
		return mt.Is("application/pdf")
	case models.AssetKindImage:
		return strings.HasPrefix(mt.String(), "image/")
	}
	return false
}
