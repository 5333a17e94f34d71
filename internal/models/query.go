package models

import "fmt"

// SearchQuery is a retrieval or answer request against one project.
type SearchQuery struct {
	Text         string `json:"text"`
	Limit        int    `json:"limit,omitempty"`
	IncludeTrace bool   `json:"include_trace,omitempty"`
}

// Validate ensures the query has text and normalizes limit into [1, maxLimit].
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	if q.Text == "" {
		return fmt.Errorf("text cannot be empty")
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}

// ProcessRequest controls asset processing for a project.
type ProcessRequest struct {
	ChunkSize   int  `json:"chunk_size,omitempty"`
	OverlapSize int  `json:"overlap_size,omitempty"`
	DoReset     bool `json:"do_reset,omitempty"`
}

// PushRequest controls vector indexing for a project.
type PushRequest struct {
	DoReset bool `json:"do_reset,omitempty"`
}
