package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default max length", func(t *testing.T) {
		assert.Equal(t, DefaultMaxLength, New().MaxLength())
	})

	t.Run("custom max length", func(t *testing.T) {
		assert.Equal(t, 512, New(WithMaxLength(512)).MaxLength())
	})

	t.Run("non-positive max length ignored", func(t *testing.T) {
		assert.Equal(t, DefaultMaxLength, New(WithMaxLength(0)).MaxLength())
		assert.Equal(t, DefaultMaxLength, New(WithMaxLength(-5)).MaxLength())
	})
}

func TestSplit_Empty(t *testing.T) {
	c := New(WithMaxLength(100))
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplit_Bounds(t *testing.T) {
	c := New(WithMaxLength(10))
	text := strings.Repeat("abc ", 25) // 100 chars
	segments := c.Split(text)

	require.Len(t, segments, 10)
	for _, seg := range segments {
		assert.NotEmpty(t, seg)
		assert.LessOrEqual(t, len([]rune(seg)), 10)
	}
	assert.Equal(t, text, strings.Join(segments, ""))
}

func TestSplit_ExactMultiple(t *testing.T) {
	// len(text) % maxLength == 0 must not produce a trailing empty segment.
	c := New(WithMaxLength(5))
	segments := c.Split("aaaaabbbbb")
	require.Equal(t, []string{"aaaaa", "bbbbb"}, segments)
}

func TestSplit_ShortText(t *testing.T) {
	c := New(WithMaxLength(4000))
	segments := c.Split("a short note")
	require.Equal(t, []string{"a short note"}, segments)
}

func TestSplit_IngestScenario(t *testing.T) {
	// 9000 chars at max 4000 → 3 chunks of 4000, 4000, 1000.
	c := New(WithMaxLength(4000))
	segments := c.Split(strings.Repeat("x", 9000))

	require.Len(t, segments, 3)
	assert.Len(t, segments[0], 4000)
	assert.Len(t, segments[1], 4000)
	assert.Len(t, segments[2], 1000)
}

func TestSplit_Deterministic(t *testing.T) {
	c := New(WithMaxLength(7))
	text := "the quick brown fox jumps over the lazy dog"
	assert.Equal(t, c.Split(text), c.Split(text))
}

func TestSplit_MultibyteRunes(t *testing.T) {
	c := New(WithMaxLength(3))
	segments := c.Split("héllø wörld")

	var rebuilt strings.Builder
	for _, seg := range segments {
		assert.LessOrEqual(t, len([]rune(seg)), 3)
		rebuilt.WriteString(seg)
	}
	assert.Equal(t, "héllø wörld", rebuilt.String())
}
