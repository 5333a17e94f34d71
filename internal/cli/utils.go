// Package cli provides the HTTP client and output formatting of the docqa command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/server"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAnswer writes an answer, its sources, and when present its trace.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	fmt.Fprintf(w, "\n%s\n\n", ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Fprintf(w, "Sources (%d, branch %s):\n", len(ans.Sources), branchName(ans.Branch))
		for i, s := range ans.Sources {
			fmt.Fprintf(w, "  %d. [%.4f] %s\n", i+1, s.Score, TruncateWords(oneLine(s.Text), 16))
		}
	}
	if ans.GeneratedSQL != "" {
		fmt.Fprintf(w, "\nSQL: %s\n", ans.GeneratedSQL)
	}
	if len(ans.Trace) > 0 {
		fmt.Fprintln(w, "\nTrace:")
		for _, line := range ans.Trace {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
	return nil
}

func branchName(b models.Branch) string {
	if b == models.BranchNone {
		return "none"
	}
	return string(b)
}

// WriteSearchResults writes raw retrieval hits to w in the given format.
func WriteSearchResults(w io.Writer, results []models.RetrievedChunk, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	fmt.Fprintf(w, "\nFound %d results\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | ID: %s\n", i+1, r.Score, r.ID)
		if src := sourceOf(r.Metadata); src != "" {
			fmt.Fprintf(w, "Source: %s\n", src)
		}
		fmt.Fprintf(w, "\n%s\n\n", Truncate(r.Text, 200))
	}
	return nil
}

func sourceOf(meta map[string]any) string {
	parts := make([]string, 0, 2)
	for _, k := range []string{models.MetaSourceFile, models.MetaType} {
		if v, ok := meta[k]; ok {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, " | ")
}

// WriteAssets writes one line per asset.
func WriteAssets(w io.Writer, assets []models.Asset, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, assets)
	}
	if len(assets) == 0 {
		fmt.Fprintln(w, "No assets")
		return nil
	}
	for _, a := range assets {
		fmt.Fprintf(w, "%6d  %-10s  %s\n", a.ID, FormatBytes(a.Size), a.OriginalName)
	}
	return nil
}

// WriteStatus writes server status to w in the given format.
func WriteStatus(w io.Writer, st *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Projects: %d\nAssets:   %d\nChunks:   %d\n", st.Projects, st.Assets, st.Chunks)
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk:     %s\n", FormatBytes(*st.DiskUsageBytes))
	}
	if c := st.Config; c != nil {
		fmt.Fprintln(w, "\nConfiguration:")
		rows := map[string]string{
			"storage":    c.StorageDriver,
			"tabular":    c.TabularBackend,
			"vector":     c.VectorBackend,
			"embedding":  fmt.Sprintf("%s %s (%d dims)", c.EmbeddingProvider, c.EmbeddingModel, c.EmbeddingDimensions),
			"generation": c.GenerationModel,
			"chunking":   fmt.Sprintf("size %d, overlap %d", c.ChunkSize, c.ChunkOverlap),
			"language":   c.Language,
		}
		keys := make([]string, 0, len(rows))
		for k := range rows {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %-11s %s\n", k+":", strings.TrimSpace(rows[k]))
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders n with a binary unit, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate truncates s to maxLen bytes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
