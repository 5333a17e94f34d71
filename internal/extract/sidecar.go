package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/docqa/internal/models"
	"go.uber.org/zap"
)

// loadSidecar reads the caption written at upload time. A missing sidecar yields no units.
func (n *Normalizer) loadSidecar(imagePath, sourceFile string) ([]models.NormalizedUnit, error) {
	raw, err := os.ReadFile(models.SidecarPath(imagePath))
	if errors.Is(err, os.ErrNotExist) {
		n.logger.Debug("no caption sidecar", zap.String("file", sourceFile))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read caption sidecar: %w", err)
	}
	var sc models.CaptionSidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse caption sidecar: %w", err)
	}
	if strings.TrimSpace(sc.Caption) == "" {
		return nil, nil
	}
	meta := make(map[string]any, len(sc.Metadata)+2)
	for k, v := range sc.Metadata {
		meta[k] = v
	}
	if t, _ := meta[models.MetaType].(string); t == "" {
		meta[models.MetaType] = models.TypeImageCaptionSide
	}
	if _, ok := meta[models.MetaSourceFile]; !ok {
		meta[models.MetaSourceFile] = sourceFile
	}
	return []models.NormalizedUnit{{Content: sc.Caption, Metadata: meta}}, nil
}
