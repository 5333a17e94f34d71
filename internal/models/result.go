package models

// RetrievedChunk is a single nearest-neighbour hit from a project collection.
type RetrievedChunk struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Payload decodes the hit into its tagged variant.
func (r RetrievedChunk) Payload() (ChunkPayload, error) {
	return PayloadFrom(r.Text, r.Metadata)
}

// Branch names the answer path taken.
type Branch string

const (
	BranchNone      Branch = ""
	BranchViolation Branch = "violation"
	BranchNoResults Branch = "no_results"
	BranchHybrid    Branch = "hybrid"
	BranchText      Branch = "text"
)

// Answer is the outcome of the answer pipeline. Text is always user-presentable.
type Answer struct {
	Text         string           `json:"answer"`
	Branch       Branch           `json:"branch,omitempty"`
	Trace        []string         `json:"trace,omitempty"`
	Thoughts     string           `json:"thoughts,omitempty"`
	GeneratedSQL string           `json:"generated_sql,omitempty"`
	Sources      []RetrievedChunk `json:"sources,omitempty"`
}

// ProcessResult reports what a processing run produced.
type ProcessResult struct {
	InsertedChunks int `json:"inserted_chunks"`
	ProcessedFiles int `json:"processed_files"`
	SkippedFiles   int `json:"skipped_files"`
}

// PushResult reports how many chunks were indexed.
type PushResult struct {
	Collection    string `json:"collection"`
	InsertedCount int    `json:"inserted_items_count"`
}
