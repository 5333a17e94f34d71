package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"question": "how many?", "schema": "t(a)"}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Q: $question", "Q: how many?"},
		{"braced", "${schema}!", "t(a)!"},
		{"unknown kept", "$missing and ${other}", "$missing and ${other}"},
		{"escaped dollar", "costs $$5", "costs $5"},
		{"adjacent text", "$question$schema", "how many?t(a)"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.in, vars))
		})
	}
}

func TestSubstitute_valueNotRescanned(t *testing.T) {
	got := Substitute("$a", map[string]string{"a": "$b", "b": "x"})
	assert.Equal(t, "$b", got)
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry("en")
	tmpl, err := r.Get(GroupRAG, KeySQLGeneration, map[string]string{
		"schema":   `Table Name: "t"`,
		"question": "total sales",
	})
	require.NoError(t, err)
	assert.Contains(t, tmpl.System, "SELECT")
	assert.Contains(t, tmpl.User, `<schema>Table Name: "t"</schema>`)
	assert.Contains(t, tmpl.User, "<question>total sales</question>")
}

func TestRegistry_allKeysPresent(t *testing.T) {
	r := NewRegistry("en")
	for _, key := range []string{
		KeyIntentClassification, KeySQLGeneration, KeyHybridSynthesis, KeyTextSynthesis, KeyAnswerModeration,
	} {
		tmpl, err := r.Get(GroupRAG, key, nil)
		require.NoError(t, err, key)
		assert.NotEmpty(t, strings.TrimSpace(tmpl.User), key)
	}
}

func TestRegistry_languageFallback(t *testing.T) {
	r := NewRegistry("ar")
	assert.Equal(t, DefaultLanguage, r.Language())
	_, err := r.Get(GroupRAG, KeyTextSynthesis, nil)
	assert.NoError(t, err)

	assert.Equal(t, DefaultLanguage, NewRegistry("").Language())
}

func TestRegistry_missing(t *testing.T) {
	r := NewRegistry("en")
	_, err := r.Get(GroupRAG, "nope", nil)
	assert.Error(t, err)
	_, err = r.Get("", KeyTextSynthesis, nil)
	assert.Error(t, err)
}
