package answer

import (
	"regexp"
	"strings"
)

const noAnswer = "NO_ANSWER"

var thinkRe = regexp.MustCompile(`(?s)<think>(.*?)</think>(.*)`)

// splitThink separates a leading <think> block from the visible text. A closing tag without an
// opening one is treated the same way, since some models stream the opening tag separately.
func splitThink(output string) (thoughts, visible string) {
	if m := thinkRe.FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if i := strings.LastIndex(output, "</think>"); i >= 0 {
		return strings.TrimSpace(output[:i]), strings.TrimSpace(output[i+len("</think>"):])
	}
	return "", strings.TrimSpace(output)
}

var intentRe = regexp.MustCompile(`[^a-zA-Z_]`)

func normalizeIntent(output string) string {
	return strings.ToLower(intentRe.ReplaceAllString(output, ""))
}

func isNoAnswer(s string) bool {
	return strings.Trim(strings.TrimSpace(s), "`*.") == noAnswer
}
