// Package prompts holds the localized prompt templates used by the answer pipeline.
package prompts

import (
	"fmt"
	"regexp"
)

// DefaultLanguage is used when a requested language or key is missing.
const DefaultLanguage = "en"

// Groups and keys known to the registry.
const (
	GroupRAG = "rag"

	KeyIntentClassification = "intent_classification_prompt"
	KeySQLGeneration        = "sql_generation_prompt"
	KeyHybridSynthesis      = "hybrid_synthesis_prompt"
	KeyTextSynthesis        = "text_synthesis_prompt"
	KeyAnswerModeration     = "answer_moderation_prompt"
)

// Template is a prompt with an optional system part and a user part.
// Both parts may contain $name or ${name} placeholders.
type Template struct {
	System string
	User   string
}

// locales maps language -> group -> key -> template.
type locales map[string]map[string]map[string]Template

var builtin = locales{
	"en": {GroupRAG: english},
}

// Registry resolves templates for one language with fallback to DefaultLanguage.
type Registry struct {
	language string
	locales  locales
}

// NewRegistry returns a registry for language. Unknown languages fall back to DefaultLanguage.
func NewRegistry(language string) *Registry {
	if _, ok := builtin[language]; !ok || language == "" {
		language = DefaultLanguage
	}
	return &Registry{language: language, locales: builtin}
}

// Language returns the resolved language.
func (r *Registry) Language() string {
	return r.language
}

// Get returns the template for group/key with vars substituted.
func (r *Registry) Get(group, key string, vars map[string]string) (Template, error) {
	if group == "" || key == "" {
		return Template{}, fmt.Errorf("prompt group and key are required")
	}
	tmpl, ok := r.lookup(r.language, group, key)
	if !ok {
		tmpl, ok = r.lookup(DefaultLanguage, group, key)
	}
	if !ok {
		return Template{}, fmt.Errorf("prompt not found: %s/%s", group, key)
	}
	return Template{
		System: Substitute(tmpl.System, vars),
		User:   Substitute(tmpl.User, vars),
	}, nil
}

func (r *Registry) lookup(lang, group, key string) (Template, bool) {
	groups, ok := r.locales[lang]
	if !ok {
		return Template{}, false
	}
	keys, ok := groups[group]
	if !ok {
		return Template{}, false
	}
	t, ok := keys[key]
	return t, ok
}

var placeholderRe = regexp.MustCompile(`\$(?:(\$)|([A-Za-z_][A-Za-z0-9_]*)|\{([A-Za-z_][A-Za-z0-9_]*)\})`)

// Substitute replaces $name and ${name} with values from vars. "$$" becomes "$".
// Placeholders without a value are left as written.
func Substitute(s string, vars map[string]string) string {
	if s == "" {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		switch {
		case sub[1] != "":
			return "$"
		case sub[2] != "":
			if v, ok := vars[sub[2]]; ok {
				return v
			}
		case sub[3] != "":
			if v, ok := vars[sub[3]]; ok {
				return v
			}
		}
		return m
	})
}
