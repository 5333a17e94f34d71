package tabular

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type decimalText string

func (d decimalText) Value() (driver.Value, error) { return string(d), nil }

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "blue", "blue"},
		{"bytes", []byte("raw"), "raw"},
		{"int", int64(2), "2"},
		{"float", 2.5, "2.5"},
		{"whole float", 10.0, "10"},
		{"date", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{"datetime", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02 03:04:05"},
		{"pipe escaped", "a|b", `a\|b`},
		{"newline flattened", "a\nb", "a b"},
		{"valuer", decimalText("12.50"), "12.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestQueryResult_Markdown(t *testing.T) {
	res := &QueryResult{
		Columns: []string{"region", "total"},
		Rows:    [][]any{{"north", int64(10)}, {"south", nil}},
	}
	want := "| region | total |\n| --- | --- |\n| north | 10 |\n| south | NULL |"
	assert.Equal(t, want, res.Markdown())

	empty := &QueryResult{Columns: []string{"n"}}
	assert.Equal(t, "| n |\n| --- |", empty.Markdown())
}
