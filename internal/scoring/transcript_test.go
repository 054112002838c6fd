package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello world"},
		{"  It's   a\ttest.\n", "it's a test"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestCompare(t *testing.T) {
	t.Run("identical after normalization", func(t *testing.T) {
		s := Compare("The quick brown fox.", "the quick brown fox")
		assert.Equal(t, 0.0, s.WER)
		assert.Equal(t, 0.0, s.CER)
		assert.Equal(t, 1.0, s.Similarity)
		assert.Equal(t, 4, s.ReferenceWords)
		assert.Equal(t, 4, s.HypothesisWords)
	})

	t.Run("one substituted word", func(t *testing.T) {
		s := Compare("the quick brown fox", "the quick brown box")
		assert.InDelta(t, 0.25, s.WER, 1e-9)
		assert.InDelta(t, 1.0/19.0, s.CER, 1e-9)
		assert.InDelta(t, 1-1.0/19.0, s.Similarity, 1e-9)
	})

	t.Run("empty hypothesis", func(t *testing.T) {
		s := Compare("hello world", "")
		assert.InDelta(t, 1.0, s.WER, 1e-9)
		assert.InDelta(t, 1.0, s.CER, 1e-9)
		assert.Equal(t, 0.0, s.Similarity)
	})

	t.Run("both empty", func(t *testing.T) {
		s := Compare("", "  ")
		assert.Equal(t, Score{Similarity: 1}, s)
	})

	t.Run("empty reference", func(t *testing.T) {
		s := Compare("", "extra words")
		assert.Equal(t, 2.0, s.WER)
		assert.Equal(t, 0.0, s.Similarity)
	})
}
