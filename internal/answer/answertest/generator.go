// Package answertest provides a scripted text generator for exercising the answer pipeline
// without a model provider.
package answertest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/hyperjump/docqa/internal/llm"
)

// Stage identifies which pipeline prompt a generation request belongs to.
type Stage string

const (
	StageIntent     Stage = "intent"
	StageSQL        Stage = "sql"
	StageHybrid     Stage = "hybrid"
	StageText       Stage = "text"
	StageModeration Stage = "moderation"
	StageUnknown    Stage = "unknown"
)

// StageOf recognizes the stage from markers in the rendered user prompt.
func StageOf(p llm.Prompt) Stage {
	switch {
	case strings.Contains(p.User, "## Classification"):
		return StageIntent
	case strings.Contains(p.User, "<schema>"):
		return StageSQL
	case strings.Contains(p.User, "<database_results>"):
		return StageHybrid
	case strings.Contains(p.User, "<context>"):
		return StageText
	case strings.Contains(p.User, "<draft>"):
		return StageModeration
	}
	return StageUnknown
}

// Reply produces the output for one prompt.
type Reply func(p llm.Prompt) string

// Generator answers each stage with its Reply. Stages without one answer with an empty string.
type Generator struct {
	mu      sync.Mutex
	replies map[Stage]Reply
	calls   map[Stage]int
	prompts map[Stage][]llm.Prompt
}

// NewGenerator returns a generator that echoes its inputs: the intent is always allowed, text and
// hybrid drafts repeat their context, moderation passes the draft through, and SQL counts the rows
// of the schema's table.
func NewGenerator() *Generator {
	return &Generator{
		replies: map[Stage]Reply{
			StageIntent:     Fixed("question"),
			StageSQL:        CountRows,
			StageHybrid:     Between("<database_results>", "</database_results>"),
			StageText:       Between("<context>", "</context>"),
			StageModeration: Between("<draft>", "</draft>"),
		},
		calls:   map[Stage]int{},
		prompts: map[Stage][]llm.Prompt{},
	}
}

// Set replaces the reply for stage.
func (g *Generator) Set(stage Stage, r Reply) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[stage] = r
	return g
}

// Generate implements llm.Generator.
func (g *Generator) Generate(_ context.Context, p llm.Prompt) (string, error) {
	stage := StageOf(p)
	g.mu.Lock()
	g.calls[stage]++
	g.prompts[stage] = append(g.prompts[stage], p)
	r := g.replies[stage]
	g.mu.Unlock()
	if r == nil {
		return "", nil
	}
	return r(p), nil
}

// Calls returns how often stage was requested.
func (g *Generator) Calls(stage Stage) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[stage]
}

// Prompts returns the prompts seen for stage, oldest first.
func (g *Generator) Prompts(stage Stage) []llm.Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Prompt(nil), g.prompts[stage]...)
}

// Fixed always replies with s.
func Fixed(s string) Reply {
	return func(llm.Prompt) string { return s }
}

// Between replies with the trimmed user prompt text between open and close.
func Between(open, close string) Reply {
	return func(p llm.Prompt) string {
		_, rest, ok := strings.Cut(p.User, open)
		if !ok {
			return ""
		}
		inner, _, _ := strings.Cut(rest, close)
		return strings.TrimSpace(inner)
	}
}

var tableName = regexp.MustCompile(`Table Name: "([^"]+)"`)

// CountRows replies with a row count query over the table named in the schema prompt.
func CountRows(p llm.Prompt) string {
	m := tableName.FindStringSubmatch(p.User)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("<think>count the rows</think>\n```sql\nSELECT COUNT(*) AS \"count\" FROM \"%s\";\n```", m[1])
}
