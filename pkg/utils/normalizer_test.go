package utils_test

import (
	"testing"

	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: " \t\n ",
			want:  "",
		},
		{
			name:  "mixed case",
			input: "Hello World",
			want:  "hello world",
		},
		{
			name:  "collapses inner whitespace",
			input: "  hello \n\n   world\t ",
			want:  "hello world",
		},
		{
			name:  "keeps punctuation",
			input: "BUY now!!",
			want:  "buy now!!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, utils.NormalizeContent(tt.input))
		})
	}
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	t.Run("equal after normalization", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, utils.ContentHash("Hello   World"), utils.ContentHash(" hello world "))
	})

	t.Run("different content", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t, utils.ContentHash("hello world"), utils.ContentHash("hello there"))
	})

	t.Run("hex encoded sha256", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, utils.ContentHash("anything"), 64)
	})
}
