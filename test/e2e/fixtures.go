// Package e2e provides end-to-end tests; this file builds minimal files for supported upload types.
package e2e

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions are the upload types E2E fixtures can be generated for.
// PDF is not generated here; the extract package tests cover it.
var SupportedFileExtensions = []string{".txt", ".md", ".csv", ".xlsx", ".png"}

// PNGHeader is the smallest byte sequence sniffed as image/png.
var PNGHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// WriteMinimalFile returns the bytes of a minimal file of the given extension carrying text.
// Tabular files hold text in a "note" column; images carry no text and rely on a caption.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md":
		return []byte(text), nil
	case ".csv":
		return []byte(fmt.Sprintf("id,note\n1,%q\n", text)), nil
	case ".xlsx":
		return minimalXlsx(text)
	case ".png":
		return append([]byte(nil), PNGHeader...), nil
	default:
		return nil, fmt.Errorf("no fixture for %s", ext)
	}
}

func minimalXlsx(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{{"id", "note"}, {1, text}}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
