package models

// ColumnSchema is one column of a materialized table.
type ColumnSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MaterializedTable is a physical table created from a spreadsheet sheet or CSV file.
type MaterializedTable struct {
	DBTableName   string         `json:"db_table_name"`
	SheetKey      string         `json:"original_sheet_name_key"`
	Columns       []ColumnSchema `json:"columns"`
	OwningAssetID int64          `json:"owning_asset_id"`
	RowCount      int64          `json:"row_count"`
}

// Mapping returns the persisted form of the table.
func (t MaterializedTable) Mapping() TableMapping {
	return TableMapping{SheetKey: t.SheetKey, DBTableName: t.DBTableName, Columns: t.Columns}
}
