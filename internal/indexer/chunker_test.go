package indexer

import (
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/models"
)

func unit(text, source string) models.NormalizedUnit {
	return models.NormalizedUnit{
		Content:  text,
		Metadata: map[string]any{models.MetaType: models.TypeTextDocument, models.MetaSourceFile: source},
	}
}

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(25, 5)
	chunks := c.Chunk([]models.NormalizedUnit{unit("alpha beta\ngamma delta\nepsilon zeta\neta theta", "a.txt")})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Order != i+1 {
			t.Errorf("chunk %d Order=%d, want %d", i, ch.Order, i+1)
		}
		if len(ch.Text) > 25 {
			t.Errorf("chunk %d length %d exceeds 25: %q", i, len(ch.Text), ch.Text)
		}
		if ch.Metadata[models.MetaSourceFile] != "a.txt" {
			t.Errorf("chunk %d metadata: %v", i, ch.Metadata)
		}
	}
	if chunks[0].Text != "alpha beta\ngamma delta" {
		t.Errorf("first chunk = %q", chunks[0].Text)
	}
	if chunks[1].Text != "epsilon zeta\neta theta" {
		t.Errorf("second chunk = %q", chunks[1].Text)
	}
}

func TestChunker_dropsShortAndBlankLines(t *testing.T) {
	c := NewChunker(100, 0)
	chunks := c.Chunk([]models.NormalizedUnit{unit("  x \n\n   \nhello there\n-\nbye now  ", "a.txt")})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if chunks[0].Text != "hello there\nbye now" {
		t.Errorf("text = %q", chunks[0].Text)
	}
}

func TestChunker_oversizeLineKeptWhole(t *testing.T) {
	long := strings.Repeat("z", 50)
	c := NewChunker(10, 0)
	chunks := c.Chunk([]models.NormalizedUnit{unit("ab\n"+long+"\ncd", "a.txt")})
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	if chunks[1].Text != long {
		t.Errorf("oversize line should be emitted whole, got %q", chunks[1].Text)
	}
}

func TestChunker_metadataFollowsChunkStart(t *testing.T) {
	c := NewChunker(30, 0)
	chunks := c.Chunk([]models.NormalizedUnit{
		unit("page one text", "p1"),
		unit("page two text\npage two more text here", "p2"),
	})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	// The first chunk starts in p1 and absorbs the first line of p2.
	if chunks[0].Metadata[models.MetaSourceFile] != "p1" || chunks[0].Text != "page one text\npage two text" {
		t.Errorf("chunk 1 = %q %v", chunks[0].Text, chunks[0].Metadata)
	}
	if chunks[1].Metadata[models.MetaSourceFile] != "p2" {
		t.Errorf("chunk 2 metadata = %v", chunks[1].Metadata)
	}
}

func TestChunker_sizeBelowOne(t *testing.T) {
	c := NewChunker(0, 0)
	chunks := c.Chunk([]models.NormalizedUnit{unit("ab\ncd", "a.txt")})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c := NewChunker(5, 1)
	if chunks := c.Chunk([]models.NormalizedUnit{unit("   \n\t  ", "a.txt")}); chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
	if chunks := c.Chunk(nil); chunks != nil {
		t.Errorf("no units should return nil, got %v", chunks)
	}
}

func TestChunker_draftsOwnTheirMetadata(t *testing.T) {
	c := NewChunker(12, 0)
	u := unit("first line\nsecond line", "a.txt")
	chunks := c.Chunk([]models.NormalizedUnit{u})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	chunks[0].Metadata["page"] = 7
	if _, ok := chunks[1].Metadata["page"]; ok {
		t.Error("metadata change on one draft leaked into another")
	}
	if _, ok := u.Metadata["page"]; ok {
		t.Error("metadata change on a draft leaked into the unit")
	}
	if chunks[1].Metadata[models.MetaSourceFile] != "a.txt" {
		t.Errorf("source_file = %v", chunks[1].Metadata[models.MetaSourceFile])
	}
}
