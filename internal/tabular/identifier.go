// Package tabular materializes CSV and XLSX sheets into relational tables and describes them as schema text.
package tabular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMaxIdentifierLength matches the Postgres identifier limit.
const DefaultMaxIdentifierLength = 63

// SurrogateKey is the auto-increment column added to every materialized table.
const SurrogateKey = "pg_id"

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	identStripRe  = regexp.MustCompile(`[^0-9a-zA-Z_]`)
	reservedNames = map[string]bool{
		"TABLE": true, "SELECT": true, "UPDATE": true, "DELETE": true, "INSERT": true,
		"FROM": true, "WHERE": true, "INDEX": true, "KEY": true, "PG_ID": true,
	}
)

// SanitizeIdentifier lowercases name, turns whitespace runs into underscores, and drops anything
// outside [0-9a-z_]. prefix is prepended when the result is empty, starts with a digit, or is reserved.
// The result is cut to maxLen bytes.
func SanitizeIdentifier(name, prefix string, maxLen int) string {
	name = whitespaceRe.ReplaceAllString(name, "_")
	name = strings.ToLower(identStripRe.ReplaceAllString(name, ""))
	if name == "" || (name[0] >= '0' && name[0] <= '9') || reservedNames[strings.ToUpper(name)] {
		name = prefix + name
	}
	return truncate(name, maxLen)
}

// SanitizeColumns sanitizes headers into unique column names. Header i uses the prefix "col{i}_";
// repeats get "_1", "_2", ... suffixes while staying within maxLen.
func SanitizeColumns(headers []string, maxLen int) []string {
	used := make(map[string]bool, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = uniqueName(SanitizeIdentifier(h, fmt.Sprintf("col%d_", i), maxLen), used, maxLen)
	}
	return out
}

// uniqueName returns base, or base cut short with the first free "_n" suffix when base is taken,
// and records the result in used.
func uniqueName(base string, used map[string]bool, maxLen int) string {
	name := base
	for n := 1; used[name]; n++ {
		suffix := "_" + strconv.Itoa(n)
		name = truncate(base, maxLen-len(suffix)) + suffix
	}
	used[name] = true
	return name
}

// TableName returns the deterministic physical table name for a sheet of an asset.
func TableName(projectID, assetID int64, sheetKey string, maxLen int) string {
	return truncate(fmt.Sprintf("pgdata_proj%d_asset%d_%s", projectID, assetID, sheetKey), maxLen)
}

// QuoteIdentifier double-quotes an identifier for both supported dialects.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func truncate(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
