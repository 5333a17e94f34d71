package tabular

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/models"
)

// SchemaText describes a table for SQL generation: its name, its columns with types, and up to
// sampleRows sample rows. A sample fetch failure is noted in the text and never fails the call.
func (m *Materializer) SchemaText(ctx context.Context, table models.MaterializedTable) string {
	parts := []string{fmt.Sprintf("Table Name: %q", table.DBTableName), "Columns:"}
	for _, c := range table.Columns {
		parts = append(parts, fmt.Sprintf("- %q (%s)", c.Name, c.Type))
	}
	if m.sampleRows <= 0 {
		return strings.Join(parts, "\n")
	}

	res, err := m.store.Query(ctx, "SELECT * FROM "+QuoteIdentifier(table.DBTableName)+" LIMIT "+fmt.Sprint(m.sampleRows))
	if err != nil {
		m.logger.Warn("could not fetch sample rows", zap.String("table", table.DBTableName), zap.Error(err))
		parts = append(parts, "\nSample Rows: (Could not be retrieved due to an error)")
		return strings.Join(parts, "\n")
	}
	if len(res.Rows) > 0 {
		headers := make([]string, len(res.Columns))
		for i, h := range res.Columns {
			headers[i] = fmt.Sprintf("%q", h)
		}
		parts = append(parts, "\nSample Rows (first few rows):", Markdown(headers, res.Cells()))
	}
	return strings.Join(parts, "\n")
}
