// Package answer runs the question answering pipeline: intent gate, retrieval, hybrid or
// text synthesis, and moderation.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/prompts"
	"github.com/hyperjump/docqa/internal/tabular"
	"go.uber.org/zap"
)

const (
	msgNoQuery      = "No valid query could be generated to retrieve data."
	msgBlockedQuery = "An invalid query was generated and blocked."
	msgNoRows       = "The query returned no results."
	msgNoText       = "No additional text information was found."
	textSeparator   = "\n---\n"
)

// Retriever embeds questions and searches a project's collection.
type Retriever interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	SearchVector(ctx context.Context, project *models.Project, vec []float32, limit int) ([]models.RetrievedChunk, error)
}

// Querier runs read-only SQL against materialized tables.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*tabular.QueryResult, error)
}

// Pipeline answers questions over one project's indexed content.
type Pipeline struct {
	generator llm.Generator
	retriever Retriever
	tables    Querier
	prompts   *prompts.Registry
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTables enables the hybrid branch against the given store.
func WithTables(q Querier) Option {
	return func(p *Pipeline) { p.tables = q }
}

// NewPipeline creates a pipeline. A nil registry uses the default language.
func NewPipeline(generator llm.Generator, retriever Retriever, registry *prompts.Registry, opts ...Option) *Pipeline {
	if registry == nil {
		registry = prompts.NewRegistry(prompts.DefaultLanguage)
	}
	p := &Pipeline{
		generator: generator,
		retriever: retriever,
		prompts:   registry,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ask answers question from project content. Every outcome is a user-presentable Answer; the only
// error returned is relational store unavailability.
func (p *Pipeline) Ask(ctx context.Context, project *models.Project, question string, limit int) (*models.Answer, error) {
	ans := &models.Answer{}
	trace := func(format string, args ...any) {
		ans.Trace = append(ans.Trace, fmt.Sprintf(format, args...))
	}

	if r := p.classify(ctx, question); r.Kind != KindOK {
		if r.Kind == KindViolation {
			ans.Branch = models.BranchViolation
		}
		trace("intent: %s", r.Kind)
		return p.finish(ans, r.Kind), nil
	}
	trace("intent: allowed")

	hits, r := p.retrieve(ctx, project, question, limit)
	if r.Kind != KindOK {
		ans.Branch = models.BranchNoResults
		trace("retrieval: no results")
		return p.finish(ans, r.Kind), nil
	}
	ans.Sources = hits
	trace("retrieval: %d chunks", len(hits))

	draft, err := p.synthesize(ctx, project.ID, question, hits, ans, trace)
	if err != nil {
		return nil, err
	}
	ans.Thoughts = draft.Thoughts
	if draft.Kind != KindOK {
		trace("synthesis: %s", draft.Kind)
		return p.finish(ans, draft.Kind), nil
	}

	final := p.moderate(ctx, question, draft.Text)
	if final.Kind != KindOK {
		trace("moderation: %s", final.Kind)
		return p.finish(ans, final.Kind), nil
	}
	trace("moderation: ok")
	ans.Text = final.Text
	return ans, nil
}

func (p *Pipeline) finish(ans *models.Answer, kind ErrorKind) *models.Answer {
	ans.Text = FallbackMessage(kind)
	return ans
}

func (p *Pipeline) generate(ctx context.Context, key string, vars map[string]string) string {
	tmpl, err := p.prompts.Get(prompts.GroupRAG, key, vars)
	if err != nil {
		p.logger.Error("prompt lookup failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	out, err := p.generator.Generate(ctx, llm.Prompt{System: tmpl.System, User: tmpl.User})
	if err != nil {
		p.logger.Warn("generation failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return out
}

func (p *Pipeline) classify(ctx context.Context, question string) StageResult {
	intent := normalizeIntent(p.generate(ctx, prompts.KeyIntentClassification, map[string]string{"question": question}))
	switch intent {
	case "":
		return stop(KindIntentEmpty)
	case "violation":
		p.logger.Warn("question refused by intent gate", zap.String("question", question))
		return stop(KindViolation)
	}
	return StageResult{Kind: KindOK, Text: intent}
}

func (p *Pipeline) retrieve(ctx context.Context, project *models.Project, question string, limit int) ([]models.RetrievedChunk, StageResult) {
	vec, err := p.retriever.EmbedQuery(ctx, question)
	if err != nil {
		p.logger.Warn("query embedding failed", zap.Error(err))
		return nil, stop(KindNoResults)
	}
	if len(vec) == 0 {
		p.logger.Warn("empty query embedding", zap.String("question", question))
		return nil, stop(KindNoResults)
	}
	hits, err := p.retriever.SearchVector(ctx, project, vec, limit)
	if err != nil {
		p.logger.Warn("vector search failed", zap.Int64("project_id", project.ID), zap.Error(err))
		return nil, stop(KindNoResults)
	}
	if len(hits) == 0 {
		return nil, stop(KindNoResults)
	}
	return hits, StageResult{Kind: KindOK}
}

// synthesize picks the branch and produces the draft. The first schema hit selects the hybrid
// branch; every other hit is text context.
func (p *Pipeline) synthesize(ctx context.Context, projectID int64, question string, hits []models.RetrievedChunk, ans *models.Answer, trace func(string, ...any)) (StageResult, error) {
	var (
		schema *models.SchemaChunk
		texts  []string
	)
	for _, h := range hits {
		payload, err := h.Payload()
		if err != nil {
			p.logger.Warn("skipping malformed hit", zap.String("id", h.ID), zap.Error(err))
			continue
		}
		if sc, ok := payload.(models.SchemaChunk); ok {
			if schema == nil {
				schema = &sc
				continue
			}
		}
		texts = append(texts, payload.Content())
	}

	var raw string
	if schema != nil {
		ans.Branch = models.BranchHybrid
		trace("branch: hybrid (table %s)", schema.TableName)
		results, err := p.runSQL(ctx, projectID, question, schema, ans, trace)
		if err != nil {
			return StageResult{}, err
		}
		textContext := strings.Join(texts, textSeparator)
		if textContext == "" {
			textContext = msgNoText
		}
		trace("synthesis: %d text chunks", len(texts))
		raw = p.generate(ctx, prompts.KeyHybridSynthesis, map[string]string{
			"question":       question,
			"sql_results":    results,
			"text_documents": textContext,
		})
	} else {
		ans.Branch = models.BranchText
		trace("branch: text (%d chunks)", len(texts))
		raw = p.generate(ctx, prompts.KeyTextSynthesis, map[string]string{
			"question":       question,
			"text_documents": strings.Join(texts, textSeparator),
		})
	}

	thoughts, visible := splitThink(raw)
	switch {
	case visible == "":
		return StageResult{Kind: KindSynthesisEmpty, Thoughts: thoughts}, nil
	case isNoAnswer(visible):
		return StageResult{Kind: KindNoAnswer, Thoughts: thoughts}, nil
	}
	return StageResult{Kind: KindOK, Text: visible, Thoughts: thoughts}, nil
}

// runSQL generates, checks, and executes a query for the schema of project projectID. The returned text is always
// usable as synthesis input; only ErrUnavailable is returned as an error.
func (p *Pipeline) runSQL(ctx context.Context, projectID int64, question string, schema *models.SchemaChunk, ans *models.Answer, trace func(string, ...any)) (string, error) {
	out := p.generate(ctx, prompts.KeySQLGeneration, map[string]string{"schema": schema.Text, "question": question})
	stmt := extractSQL(out)
	switch err := checkSQL(stmt, projectID); {
	case errors.Is(err, errNoSQL):
		p.logger.Warn("no query generated", zap.String("output", out))
		trace("sql: none generated")
		return msgNoQuery, nil
	case err != nil:
		p.logger.Error("generated query blocked", zap.String("statement", stmt), zap.Error(err))
		trace("sql: blocked")
		return msgBlockedQuery, nil
	}
	ans.GeneratedSQL = stmt
	trace("sql: %s", stmt)

	if p.tables == nil {
		return "There was an error running the query: no relational store is configured", nil
	}
	res, err := p.tables.Query(ctx, stmt)
	if errors.Is(err, tabular.ErrUnavailable) {
		return "", err
	}
	if err != nil {
		p.logger.Error("generated query failed", zap.String("statement", stmt), zap.Error(err))
		return fmt.Sprintf("There was an error running the query: %v", err), nil
	}
	trace("sql: %d rows", len(res.Rows))
	if len(res.Rows) == 0 {
		return msgNoRows, nil
	}
	return "Query Results:\n" + res.Markdown(), nil
}

func (p *Pipeline) moderate(ctx context.Context, question, draft string) StageResult {
	out := p.generate(ctx, prompts.KeyAnswerModeration, map[string]string{"question": question, "draft_answer": draft})
	thoughts, visible := splitThink(out)
	switch {
	case visible == "":
		return stop(KindModerationEmpty)
	case isNoAnswer(visible):
		return stop(KindNoAnswer)
	}
	return StageResult{Kind: KindOK, Text: visible, Thoughts: thoughts}
}
