package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "SimpleWord",
			input:    "user",
			expected: []string{"user"},
		},
		{
			name:     "CamelCase",
			input:    "UserService",
			expected: []string{"service", "user", "userservice"},
		},
		{
			name:     "SnakeCase",
			input:    "parse_input",
			expected: []string{"input", "parse", "parse_input"},
		},
		{
			name:     "QualifiedName",
			input:    "org.team.Player",
			expected: []string{"org", "org.team.player", "player", "team"},
		},
		{
			name:     "MixedCase",
			input:    "getURL",
			expected: []string{"get", "geturl", "url"},
		},
		{
			name:     "WithNumbers",
			input:    "parseHTTP2",
			expected: []string{"2", "http2", "parse", "parsehttp", "parsehttp2"},
		},
		{
			name:     "SingleChar",
			input:    "i",
			expected: []string{"i"},
		},
		{
			name:     "EmptyString",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tokenize(tt.input))
		})
	}
}

func TestTokenIndex_AddRemove(t *testing.T) {
	t.Parallel()

	ix := newTokenIndex()
	ix.add("Player.java", playerDescription())
	ix.add("Player.java", playerDescription())
	assert.Equal(t, 1, ix.len(), "re-adding replaces the document")

	assert.True(t, ix.remove("org.team.Player"))
	assert.False(t, ix.remove("org.team.Player"))
	assert.Zero(t, ix.len())
	assert.Empty(t, ix.postings, "postings are pruned")
}

func TestTokenIndex_Weights(t *testing.T) {
	t.Parallel()

	ix := newTokenIndex()
	ix.add("Player.java", playerDescription())

	results := ix.search("age", 0)
	if assert.Len(t, results, 1) {
		assert.Equal(t, float64(weightProperty), results[0].Score)
		assert.Equal(t, "Player.java", results[0].FilePath)
	}

	results = ix.search("string", 0)
	if assert.Len(t, results, 1) {
		assert.Equal(t, float64(weightType), results[0].Score)
		assert.Empty(t, results[0].Properties)
	}
}
