package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/docqa/internal/models"
)

// ErrTooLarge is returned by Save when the content exceeds the size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

var unsafeNameChars = regexp.MustCompile(`[^\w.]`)

// FileStore keeps uploaded assets under root/<project id>/.
type FileStore struct {
	root string
}

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the store's root directory.
func (s *FileStore) Root() string {
	return s.root
}

// ProjectDir returns the directory holding a project's files.
func (s *FileStore) ProjectDir(projectID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(projectID, 10))
}

// Path returns the absolute path of a stored asset.
func (s *FileStore) Path(projectID int64, name string) string {
	return filepath.Join(s.ProjectDir(projectID), filepath.Base(name))
}

// CleanName keeps word characters and dots, turning spaces into underscores.
func CleanName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(filepath.Base(name)), " ", "_")
	return unsafeNameChars.ReplaceAllString(name, "")
}

// Save writes r under a fresh "{random}_{clean name}" file name. If more than maxBytes
// are read (maxBytes > 0), the partial file is removed and ErrTooLarge returned.
func (s *FileStore) Save(projectID int64, originalName string, r io.Reader, maxBytes int64) (string, int64, error) {
	dir := s.ProjectDir(projectID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create project directory: %w", err)
	}
	key := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	name := key + "_" + CleanName(originalName)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("failed to write file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("failed to write file: %w", closeErr)
	case maxBytes > 0 && n > maxBytes:
		_ = os.Remove(path)
		return "", 0, ErrTooLarge
	}
	return name, n, nil
}

// Bytes returns the content of a stored asset.
func (s *FileStore) Bytes(projectID int64, name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(projectID, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, name)
	}
	return data, err
}

// Remove deletes a stored asset and its caption sidecar. Missing files are ignored.
func (s *FileStore) Remove(projectID int64, name string) error {
	path := s.Path(projectID, name)
	for _, p := range []string{path, models.SidecarPath(path)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// WriteCaptionSidecar stores the caption JSON next to an image asset.
func (s *FileStore) WriteCaptionSidecar(projectID int64, name string, sidecar models.CaptionSidecar) error {
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal caption: %w", err)
	}
	if err := os.WriteFile(models.SidecarPath(s.Path(projectID, name)), data, 0644); err != nil {
		return fmt.Errorf("failed to write caption: %w", err)
	}
	return nil
}
