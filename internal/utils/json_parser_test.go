package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAIJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "pure JSON",
			input: `{"bedrooms": 2, "location": "downtown"}`,
			want:  map[string]any{"bedrooms": float64(2), "location": "downtown"},
		},
		{
			name:  "markdown fenced",
			input: "```json\n{\"bedrooms\": 3}\n```",
			want:  map[string]any{"bedrooms": float64(3)},
		},
		{
			name:  "unlabelled fence",
			input: "```\n{\"petFriendly\": true}\n```",
			want:  map[string]any{"petFriendly": true},
		},
		{
			name:  "surrounding text",
			input: `Here is the result: {"keywords": ["quiet"]} hope it helps`,
			want:  map[string]any{"keywords": []any{"quiet"}},
		},
		{
			name:  "trailing comma",
			input: `{"bathrooms": 1,}`,
			want:  map[string]any{"bathrooms": float64(1)},
		},
		{
			name:  "unquoted keys",
			input: `{bedrooms: 1, location: "midtown"}`,
			want:  map[string]any{"bedrooms": float64(1), "location": "midtown"},
		},
		{
			name:  "single quoted values",
			input: `{'location': 'uptown'}`,
			want:  map[string]any{"location": "uptown"},
		},
		{
			name:  "braces inside strings",
			input: `result: {"location": "the {old} mill"} done`,
			want:  map[string]any{"location": "the {old} mill"},
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "not json",
			input:   "I could not understand the query",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			err := ParseAIJSON(tt.input, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAIJSON_EmptyInputSentinel(t *testing.T) {
	var v map[string]any
	assert.ErrorIs(t, ParseAIJSON("", &v), ErrEmptyInput)
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractBalanced(`{"a": {"b": 1}} tail`, '{', '}'))
	assert.Equal(t, "", extractBalanced(`{"a": 1`, '{', '}'))
	assert.Equal(t, `[1, [2]]`, extractBalanced(`[1, [2]]`, '[', ']'))
}

func TestFixSingleQuotes_KeepsApostrophes(t *testing.T) {
	assert.Equal(t, `{"note": "owner's flat"}`, fixSingleQuotes(`{"note": "owner's flat"}`))
	assert.Equal(t, `{"a": "b"}`, fixSingleQuotes(`{'a': 'b'}`))
}
