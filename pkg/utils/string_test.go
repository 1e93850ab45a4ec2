package utils_test

import (
	"testing"

	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
		{
			name:  "trims entries",
			input: " youtube.com , github.com",
			want:  []string{"youtube.com", "github.com"},
		},
		{
			name:  "drops empty entries",
			input: "a,,b,",
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, utils.SplitList(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", utils.Truncate("short", 10))
	assert.Equal(t, "abcdefg...", utils.Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", utils.Truncate("abcdef", 2))
}

func TestCompressAllWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", utils.CompressAllWhitespace(" a\n\nb\t c "))
	assert.Empty(t, utils.CompressAllWhitespace("   "))
}
