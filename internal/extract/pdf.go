package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// pdfPages returns the plain text of every page, indexed from 0, and the page count.
func pdfPages(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	pages := make([]string, r.NumPage())
	for i := range pages {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		pages[i] = text
	}
	return pages, nil
}

// loadPDF emits one unit per page with text, followed by one unit per captioned embedded image.
func (n *Normalizer) loadPDF(ctx context.Context, sourceFile string, content []byte) ([]models.NormalizedUnit, error) {
	pages, err := pdfPages(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sourceFile, err)
	}
	var units []models.NormalizedUnit
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		units = append(units, models.NormalizedUnit{
			Content: validUTF8([]byte(text)),
			Metadata: map[string]any{
				models.MetaType:       models.TypeTextDocument,
				models.MetaSourceFile: sourceFile,
				models.MetaPage:       i + 1,
				models.MetaTotalPages: len(pages),
			},
		})
	}

	if n.captioner == nil {
		return units, nil
	}
	images, err := pdfImages(content)
	if err != nil {
		n.logger.Warn("pdf image extraction failed", zap.String("file", sourceFile), zap.Error(err))
		return units, nil
	}
	return append(units, n.captionImages(ctx, sourceFile, images)...), nil
}
