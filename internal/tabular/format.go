package tabular

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Markdown renders headers and cells as a markdown table.
func Markdown(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |")
	for _, row := range rows {
		b.WriteString("\n| " + strings.Join(row, " | ") + " |")
	}
	return b.String()
}

// Cells formats every value of res for display.
func (res *QueryResult) Cells() [][]string {
	out := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		out[i] = cells
	}
	return out
}

// Markdown renders the result as a markdown table.
func (res *QueryResult) Markdown() string {
	return Markdown(res.Columns, res.Cells())
}

// FormatValue renders a driver value. NULL becomes "NULL"; pipes are escaped so they
// cannot break a markdown row.
func FormatValue(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		s = x
	case []byte:
		s = string(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			s = x.Format("2006-01-02")
		} else {
			s = x.Format("2006-01-02 15:04:05")
		}
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			s = fmt.Sprint(v)
		} else {
			return FormatValue(dv)
		}
	default:
		s = fmt.Sprint(x)
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", `\|`)
}
