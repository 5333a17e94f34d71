package answer

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	errNoSQL          = errors.New("no query in model output")
	errNotSelect      = errors.New("statement is not a SELECT")
	errMultiStatement = errors.New("statement contains a separator")
	errForeignTable   = errors.New("statement reads another project's table")
)

var (
	fenceRe        = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	sqlTagRe       = regexp.MustCompile(`(?i)^sql\s+`)
	projectTableRe = regexp.MustCompile(`(?i)pgdata_proj(\d+)_`)
)

// extractSQL pulls the statement out of a generation: the text after </think> when present,
// with code fences, backticks, a leading "sql" tag, and trailing semicolons removed.
func extractSQL(output string) string {
	if i := strings.LastIndex(output, "</think>"); i >= 0 {
		output = output[i+len("</think>"):]
	}
	if m := fenceRe.FindStringSubmatch(output); m != nil {
		output = m[1]
	}
	s := strings.TrimSpace(strings.ReplaceAll(output, "`", ""))
	s = strings.TrimSpace(sqlTagRe.ReplaceAllString(s, ""))
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}

// checkSQL accepts a single SELECT statement that reads no materialized table of a project other
// than projectID. Anything else is refused before it reaches the store.
func checkSQL(s string, projectID int64) error {
	if s == "" {
		return errNoSQL
	}
	if len(s) < 6 || !strings.EqualFold(s[:6], "select") {
		return errNotSelect
	}
	if hasSeparator(s) {
		return errMultiStatement
	}
	own := strconv.FormatInt(projectID, 10)
	for _, m := range projectTableRe.FindAllStringSubmatch(s, -1) {
		if strings.TrimLeft(m[1], "0") != own {
			return errForeignTable
		}
	}
	return nil
}

// hasSeparator reports a ';' outside string literals, quoted identifiers, and comments. An
// unterminated literal or comment counts as a separator when any ';' follows its start.
func hasSeparator(s string) bool {
	for i := 0; i < len(s); i++ {
		var end int
		switch {
		case s[i] == '\'' || s[i] == '"':
			end = strings.IndexByte(s[i+1:], s[i]) + 1
		case strings.HasPrefix(s[i:], "--"):
			end = strings.IndexByte(s[i:], '\n')
		case strings.HasPrefix(s[i:], "/*"):
			if end = strings.Index(s[i+2:], "*/"); end >= 0 {
				end += 3
			}
		case s[i] == ';':
			return true
		default:
			continue
		}
		if end <= 0 {
			return strings.Contains(s[i:], ";")
		}
		i += end
	}
	return false
}
