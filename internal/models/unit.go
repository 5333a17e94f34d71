package models

// Metadata type tags. The type tag drives every downstream branching decision.
const (
	TypeTextDocument       = "text_document"
	TypeImageCaptionSide   = "image_caption_sidecar"
	TypeImageCaptionUpload = "image_caption_upload"
	TypeImageCaptionPDF    = "image_caption_pdf_extraction"
	TypeTableSchema        = "pgsql_table_schema"
)

// Metadata keys shared by units and chunks.
const (
	MetaType          = "type"
	MetaSourceFile    = "source_file"
	MetaPage          = "page"
	MetaTotalPages    = "total_pages"
	MetaImageIndex    = "image_index"
	MetaSourceAssetID = "source_asset_id"
	MetaTableName     = "pgsql_table_name"
)

// NormalizedUnit is one (text, metadata) unit loaded from an asset. It is never persisted.
type NormalizedUnit struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Type returns the unit's type tag.
func (u NormalizedUnit) Type() string {
	t, _ := u.Metadata[MetaType].(string)
	return t
}

// CaptionSidecar is the JSON written next to an uploaded image.
type CaptionSidecar struct {
	Caption  string         `json:"caption"`
	Metadata map[string]any `json:"metadata"`
}

// SidecarPath returns the caption sidecar path for a stored image.
func SidecarPath(imagePath string) string {
	return imagePath + ".caption.json"
}
