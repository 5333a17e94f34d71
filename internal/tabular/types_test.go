package tabular

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ColumnType
	}{
		{"integers", []string{"1", "-2", " 3 "}, TypeInteger},
		{"wide integers", []string{"1", "9999999999"}, TypeBigInt},
		{"floats", []string{"1", "2.5", "-0.25"}, TypeFloat},
		{"booleans", []string{"true", "No", "YES"}, TypeBoolean},
		{"dates", []string{"2024-01-02", "2024-02-03 10:11:12"}, TypeTimestamp},
		{"mixed", []string{"1", "blue"}, TypeText},
		{"empty cells ignored", []string{"", "4", ""}, TypeInteger},
		{"all empty", []string{"", " "}, TypeText},
		{"no values", nil, TypeText},
		{"nan is text", []string{"NaN"}, TypeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.values))
		})
	}
}

func TestParseCell(t *testing.T) {
	v, err := ParseCell(TypeInteger, " 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = ParseCell(TypeFloat, "2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	v, err = ParseCell(TypeBoolean, "yes")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = ParseCell(TypeTimestamp, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), v)

	v, err = ParseCell(TypeText, " keep spaces ")
	require.NoError(t, err)
	assert.Equal(t, " keep spaces ", v)

	v, err = ParseCell(TypeInteger, "")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = ParseCell(TypeInteger, "x")
	assert.Error(t, err)
}
