// Package indexer turns stored assets into chunks and pushes chunks into project vector collections.
package indexer

import (
	"maps"
	"strings"

	"github.com/hyperjump/docqa/internal/models"
)

// Chunker splits normalized units into line-aligned chunks of at most chunkSize bytes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int // accepted for API compatibility; lines are never repeated across chunks
}

// NewChunker creates a chunker with the given size and overlap (in bytes).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk accumulates trimmed lines greedily. A chunk carries the metadata of the unit it started in
// and may continue into following units. A single line longer than chunkSize becomes its own chunk.
// Each draft owns a copy of its metadata. Orders start at 1.
func (c *Chunker) Chunk(units []models.NormalizedUnit) []models.ChunkDraft {
	var (
		drafts  []models.ChunkDraft
		acc     strings.Builder
		current map[string]any
	)
	flush := func() {
		text := strings.TrimSpace(acc.String())
		acc.Reset()
		if text == "" {
			return
		}
		drafts = append(drafts, models.ChunkDraft{
			Text:     text,
			Metadata: maps.Clone(current),
			Order:    len(drafts) + 1,
		})
	}

	for _, unit := range units {
		if acc.Len() == 0 {
			current = unit.Metadata
		}
		for _, raw := range strings.Split(unit.Content, "\n") {
			line := strings.TrimSpace(raw)
			if len(line) <= 1 {
				continue
			}
			if acc.Len() > 0 && acc.Len()+len(line)+1 > c.chunkSize {
				flush()
				current = unit.Metadata
			}
			acc.WriteString(line)
			acc.WriteByte('\n')
		}
	}
	flush()
	return drafts
}
