package storage

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/models"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"my report (v2).pdf", "my_report_v2.pdf"},
		{"../../etc/passwd", "passwd"},
		{"résumé.txt", "rsum.txt"},
	}
	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileStore_SaveBytesRemove(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	name, size, err := fs.Save(4, "notes file.txt", strings.NewReader("hello"), 100)
	if err != nil {
		t.Fatal(err)
	}
	if size != 5 || !strings.HasSuffix(name, "_notes_file.txt") {
		t.Errorf("Save = %q, %d", name, size)
	}
	data, err := fs.Bytes(4, name)
	if err != nil || string(data) != "hello" {
		t.Errorf("Bytes = %q, %v", data, err)
	}

	if err := fs.WriteCaptionSidecar(4, name, models.CaptionSidecar{Caption: "a cat"}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(models.SidecarPath(fs.Path(4, name)))
	if err != nil {
		t.Fatal(err)
	}
	var sc models.CaptionSidecar
	if err := json.Unmarshal(raw, &sc); err != nil || sc.Caption != "a cat" {
		t.Errorf("sidecar = %+v, %v", sc, err)
	}

	if err := fs.Remove(4, name); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(models.SidecarPath(fs.Path(4, name))); !os.IsNotExist(err) {
		t.Error("sidecar should be removed with the asset")
	}
	if _, err := fs.Bytes(4, name); !errors.Is(err, ErrNotFound) {
		t.Errorf("Bytes after remove: %v", err)
	}
	if err := fs.Remove(4, name); err != nil {
		t.Errorf("removing twice should be a no-op, got %v", err)
	}
}

func TestFileStore_SaveTooLarge(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = fs.Save(1, "big.txt", strings.NewReader(strings.Repeat("x", 11)), 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}
	entries, _ := os.ReadDir(fs.ProjectDir(1))
	if len(entries) != 0 {
		t.Errorf("partial file left behind: %v", entries)
	}
}
