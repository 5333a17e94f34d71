package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "SELECT 1", "SELECT 1"},
		{"after think", "<think>count rows</think>\nSELECT COUNT(*) FROM t;", "SELECT COUNT(*) FROM t"},
		{"fenced", "```sql\nSELECT * FROM \"t\";\n```", `SELECT * FROM "t"`},
		{"sql tag", "sql SELECT a FROM t", "SELECT a FROM t"},
		{"backticks", "`SELECT a FROM t`", "SELECT a FROM t"},
		{"repeated semicolons", "SELECT 1;;  ", "SELECT 1"},
		{"empty", "<think>no idea</think>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSQL(tt.in))
		})
	}
}

func TestCheckSQL(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want error
	}{
		{"select", "SELECT region FROM t", nil},
		{"lower case", "select count(*) from t", nil},
		{"empty", "", errNoSQL},
		{"drop", "DROP TABLE t", errNotSelect},
		{"update", "UPDATE t SET a = 1", errNotSelect},
		{"stacked", "SELECT 1; DROP TABLE t", errMultiStatement},
		{"short", "SEL", errNotSelect},
		{"semicolon in literal", "SELECT * FROM t WHERE note = 'a;b'", nil},
		{"escaped quote in literal", "SELECT * FROM t WHERE note = 'it''s;ok'", nil},
		{"semicolon in quoted identifier", `SELECT "a;b" FROM t`, nil},
		{"semicolon in block comment", "SELECT /* x; y */ 1", nil},
		{"stacked after literal", "SELECT 'a;b'; DELETE FROM t", errMultiStatement},
		{"unterminated literal", "SELECT 'a; DROP TABLE t", errMultiStatement},
		{"own project table", `SELECT COUNT(*) FROM "pgdata_proj7_asset2_sales"`, nil},
		{"other project table", `SELECT * FROM "pgdata_proj8_asset2_sales"`, errForeignTable},
		{"join into other project", `SELECT * FROM pgdata_proj7_asset2_a JOIN PGDATA_PROJ70_asset1_b USING (pg_id)`, errForeignTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, checkSQL(tt.stmt, 7), tt.want)
		})
	}
}

func TestDropTableGenerationIsRefused(t *testing.T) {
	stmt := extractSQL("<think>clean up</think>DROP TABLE x;")
	assert.Equal(t, "DROP TABLE x", stmt)
	assert.ErrorIs(t, checkSQL(stmt, 1), errNotSelect)
}
