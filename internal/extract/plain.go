package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/docqa/internal/models"
)

// validUTF8 returns content as a string. Invalid sequences become the replacement character.
func validUTF8(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd")
	}
	return string(content)
}

func textUnit(sourceFile string, content []byte) models.NormalizedUnit {
	return models.NormalizedUnit{
		Content: validUTF8(content),
		Metadata: map[string]any{
			models.MetaType:       models.TypeTextDocument,
			models.MetaSourceFile: sourceFile,
		},
	}
}
