package models

import (
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// AssetKind groups stored files by how they are processed.
type AssetKind string

const (
	AssetKindText    AssetKind = "text"
	AssetKindPDF     AssetKind = "pdf"
	AssetKindImage   AssetKind = "image"
	AssetKindTabular AssetKind = "tabular"
	AssetKindUnknown AssetKind = "unknown"
)

// KindForName returns the asset kind derived from the file extension.
func KindForName(name string) AssetKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return AssetKindText
	case ".pdf":
		return AssetKindPDF
	case ".png", ".jpg", ".jpeg":
		return AssetKindImage
	case ".csv", ".xlsx":
		return AssetKindTabular
	default:
		return AssetKindUnknown
	}
}

// TableMapping records one materialized table owned by an asset.
type TableMapping struct {
	SheetKey    string         `json:"original_sheet_name_key"`
	DBTableName string         `json:"db_table_name"`
	Columns     []ColumnSchema `json:"columns,omitempty"`
}

// AssetConfig is the JSON config stored on an asset.
type AssetConfig struct {
	PgsqlTables []TableMapping `json:"pgsql_tables,omitempty"`
}

// TableNames returns the physical table names recorded on the config.
func (c AssetConfig) TableNames() []string {
	names := make([]string, 0, len(c.PgsqlTables))
	for _, t := range c.PgsqlTables {
		if t.DBTableName != "" {
			names = append(names, t.DBTableName)
		}
	}
	return names
}

// Asset is a stored uploaded file belonging to a project.
type Asset struct {
	ID           int64                           `json:"asset_id" gorm:"primaryKey"`
	ProjectID    int64                           `json:"project_id" gorm:"index;not null"`
	Name         string                          `json:"asset_name" gorm:"size:255;not null"`
	OriginalName string                          `json:"original_name" gorm:"size:255"`
	Size         int64                           `json:"asset_size"`
	Checksum     string                          `json:"checksum" gorm:"index;size:64"`
	Config       datatypes.JSONType[AssetConfig] `json:"asset_config"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

// Kind returns the processing kind of the asset.
func (a *Asset) Kind() AssetKind {
	return KindForName(a.Name)
}
