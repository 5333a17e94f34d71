// Package vector provides project-scoped vector collections behind one Store interface,
// with in-memory, Qdrant, and pgvector backends.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCollectionNotFound is returned when a named collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Distance is the similarity metric of a collection.
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
)

// ParseDistance validates a configured distance name.
func ParseDistance(s string) (Distance, error) {
	switch Distance(strings.ToLower(strings.TrimSpace(s))) {
	case DistanceCosine, "":
		return DistanceCosine, nil
	case DistanceDot:
		return DistanceDot, nil
	default:
		return "", fmt.Errorf("unknown distance: %s (supported: cosine, dot)", s)
	}
}

// Record is one vector with the chunk text and metadata stored alongside it.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Result is a search hit. Higher scores are closer.
type Result struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name        string   `json:"name"`
	Dimensions  int      `json:"dimensions"`
	Distance    Distance `json:"distance"`
	PointsCount int64    `json:"points_count"`
}

// Store manages named collections of vectors.
type Store interface {
	// CreateCollection creates name if missing. With reset, an existing collection is deleted first.
	// It reports whether a new collection was created.
	CreateCollection(ctx context.Context, name string, dim int, reset bool) (bool, error)
	DeleteCollection(ctx context.Context, name string) error
	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, name string, records []Record) error
	Delete(ctx context.Context, name string, ids []string) error
	Search(ctx context.Context, name string, query []float32, k int) ([]Result, error)
	Info(ctx context.Context, name string) (*CollectionInfo, error)
	Close() error
}

func validateRecords(dim int, records []Record) error {
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("record id is required")
		}
		if dim > 0 && len(r.Vector) != dim {
			return fmt.Errorf("record %s dimension mismatch: got %d, expected %d", r.ID, len(r.Vector), dim)
		}
	}
	return nil
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
