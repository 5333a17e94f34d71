package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one header-plus-rows table read from a CSV file or an XLSX worksheet.
type Sheet struct {
	Key     string // sanitized sheet key used in the table name
	Name    string // original sheet or file name
	Headers []string
	Rows    [][]string // each row has len(Headers) cells
}

// LoadSheets reads every sheet of a .csv or .xlsx file. The first row is the header.
func LoadSheets(path string) ([]Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		s, err := loadCSV(path)
		if err != nil {
			return nil, err
		}
		return []Sheet{s}, nil
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported tabular file: %s", filepath.Base(path))
	}
}

func loadCSV(path string) (Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sheet := Sheet{
		Key:  SanitizeIdentifier(base, "csv_data_", DefaultMaxIdentifierLength),
		Name: base,
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, fmt.Errorf("failed to read csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	sheet.Headers, sheet.Rows = splitHeader(records)
	return sheet, nil
}

func loadXLSX(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		headers, data := splitHeader(rows)
		sheets = append(sheets, Sheet{
			Key:     SanitizeIdentifier(name, "sheet_", DefaultMaxIdentifierLength),
			Name:    name,
			Headers: headers,
			Rows:    data,
		})
	}
	return sheets, nil
}

// splitHeader takes the first record as the header, pads every data row to the header width,
// and drops rows with no non-blank cell.
func splitHeader(records [][]string) ([]string, [][]string) {
	if len(records) == 0 {
		return nil, nil
	}
	headers := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		row := make([]string, len(headers))
		copy(row, rec)
		rows = append(rows, row)
	}
	return headers, rows
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
