package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Chunk is a persisted, bounded unit of text derived from an asset.
// Order is 1-based per asset and assigned once at creation.
type Chunk struct {
	ID        int64             `json:"chunk_id" gorm:"primaryKey"`
	UUID      string            `json:"chunk_uuid" gorm:"uniqueIndex;size:36;not null"`
	Text      string            `json:"chunk_text" gorm:"not null"`
	Metadata  datatypes.JSONMap `json:"chunk_metadata"`
	Order     int               `json:"chunk_order" gorm:"column:chunk_order;not null"`
	ProjectID int64             `json:"chunk_project_id" gorm:"index;not null"`
	AssetID   int64             `json:"chunk_asset_id" gorm:"index;not null"`
	CreatedAt time.Time         `json:"created_at"`
}

// ChunkDraft is a chunk before it is assigned an owner and persisted.
type ChunkDraft struct {
	Text     string
	Metadata map[string]any
	Order    int
}

// PayloadKind discriminates ChunkPayload variants.
type PayloadKind int

const (
	PayloadText PayloadKind = iota
	PayloadSchema
)

func (k PayloadKind) String() string {
	if k == PayloadSchema {
		return "schema"
	}
	return "text"
}

// ChunkPayload is the tagged union TextChunk | SchemaChunk.
type ChunkPayload interface {
	Kind() PayloadKind
	Content() string
}

// TextChunk is ordinary retrievable prose (document text or an image caption).
type TextChunk struct {
	Text string
	Type string
}

func (TextChunk) Kind() PayloadKind { return PayloadText }
func (c TextChunk) Content() string { return c.Text }

// SchemaChunk points at a materialized table; Text is its schema description.
type SchemaChunk struct {
	Text          string
	TableName     string
	SourceAssetID int64
}

func (SchemaChunk) Kind() PayloadKind { return PayloadSchema }
func (c SchemaChunk) Content() string { return c.Text }

// PayloadFrom decides the payload variant from text and metadata.
// A schema-typed metadata map without a table name is an error.
func PayloadFrom(text string, metadata map[string]any) (ChunkPayload, error) {
	typ, _ := metadata[MetaType].(string)
	if typ != TypeTableSchema {
		return TextChunk{Text: text, Type: typ}, nil
	}
	table, _ := metadata[MetaTableName].(string)
	if table == "" {
		return nil, fmt.Errorf("schema chunk without %s", MetaTableName)
	}
	return SchemaChunk{Text: text, TableName: table, SourceAssetID: int64FromAny(metadata[MetaSourceAssetID])}, nil
}

// Payload decodes the chunk into its tagged variant.
func (c *Chunk) Payload() (ChunkPayload, error) {
	return PayloadFrom(c.Text, c.Metadata)
}

// SchemaMetadata builds the metadata for a schema chunk.
func SchemaMetadata(assetID int64, tableName string) map[string]any {
	return map[string]any{
		MetaType:          TypeTableSchema,
		MetaSourceAssetID: assetID,
		MetaTableName:     tableName,
	}
}

func int64FromAny(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return 0
	}
}
