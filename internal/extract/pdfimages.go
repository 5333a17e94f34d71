package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// pdfImage is one raster image embedded in a PDF page.
type pdfImage struct {
	page  int
	index int // 1-based within the page
	data  []byte
}

// pdfImages extracts embedded images in page order, then object order within a page.
func pdfImages(content []byte) ([]pdfImage, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	perPage, err := api.ExtractImagesRaw(bytes.NewReader(content), nil, conf)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	var raw []model.Image
	for _, m := range perPage {
		for _, img := range m {
			raw = append(raw, img)
		}
	}
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].PageNr != raw[j].PageNr {
			return raw[i].PageNr < raw[j].PageNr
		}
		return raw[i].ObjNr < raw[j].ObjNr
	})

	var (
		out    []pdfImage
		lastPg int
		inPage int
	)
	for _, img := range raw {
		if img.Reader == nil {
			continue
		}
		data, err := io.ReadAll(img)
		if err != nil || len(data) == 0 {
			continue
		}
		if img.PageNr != lastPg {
			lastPg, inPage = img.PageNr, 0
		}
		inPage++
		out = append(out, pdfImage{page: img.PageNr, index: inPage, data: data})
	}
	return out, nil
}

// captionImages captions images with bounded concurrency. A failed image is logged and skipped;
// the output keeps input order.
func (n *Normalizer) captionImages(ctx context.Context, sourceFile string, images []pdfImage) []models.NormalizedUnit {
	captions := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for i, img := range images {
		g.Go(func() error {
			caption, err := n.captioner.Caption(gctx, img.data)
			if err != nil {
				n.logger.Warn("pdf image caption failed",
					zap.String("file", sourceFile),
					zap.Int("page", img.page),
					zap.Int("image_index", img.index),
					zap.Error(err))
				return nil
			}
			captions[i] = strings.TrimSpace(caption)
			return nil
		})
	}
	_ = g.Wait()

	var units []models.NormalizedUnit
	for i, caption := range captions {
		if caption == "" {
			continue
		}
		units = append(units, models.NormalizedUnit{
			Content: caption,
			Metadata: map[string]any{
				models.MetaType:       models.TypeImageCaptionPDF,
				models.MetaSourceFile: sourceFile,
				models.MetaPage:       images[i].page,
				models.MetaImageIndex: images[i].index,
			},
		})
	}
	return units
}
