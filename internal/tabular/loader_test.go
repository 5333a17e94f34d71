package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadSheets_csv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a1b2_Monthly Sales.csv")
	content := "\ufeffRegion,Amount\nnorth,10\n,\nsouth\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	sheets, err := LoadSheets(path)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	s := sheets[0]
	assert.Equal(t, "a1b2_monthly_sales", s.Key)
	assert.Equal(t, []string{"Region", "Amount"}, s.Headers)
	assert.Equal(t, [][]string{{"north", "10"}, {"south", ""}}, s.Rows)
}

func TestLoadSheets_csvDigitPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0600))
	sheets, err := LoadSheets(path)
	require.NoError(t, err)
	assert.Equal(t, "csv_data_2024", sheets[0].Key)
}

func TestLoadSheets_xlsx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Name", "Qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"bolt", 3}))
	_, err := f.NewSheet("Empty Sheet")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	sheets, err := LoadSheets(path)
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "sheet1", sheets[0].Key)
	assert.Equal(t, []string{"Name", "Qty"}, sheets[0].Headers)
	assert.Equal(t, [][]string{{"bolt", "3"}}, sheets[0].Rows)
	assert.Equal(t, "empty_sheet", sheets[1].Key)
	assert.Empty(t, sheets[1].Rows)
}

func TestLoadSheets_unsupported(t *testing.T) {
	_, err := LoadSheets("notes.txt")
	assert.Error(t, err)
}
