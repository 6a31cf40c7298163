// Package chunker splits ingested text into bounded-size, order-preserving
// segments suitable for embedding.
package chunker

import "strings"

// DefaultMaxLength is the default segment length in runes, sized to the
// embedding model's context window.
const DefaultMaxLength = 4000

// Chunker splits text into consecutive, non-overlapping segments.
type Chunker struct {
	maxLength int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxLength sets the segment length in runes.
func WithMaxLength(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxLength = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxLength returns the configured segment length.
func (c *Chunker) MaxLength() int {
	return c.maxLength
}

// Split cuts text into segments of at most maxLength runes each, preserving
// reading order. Whitespace-only input yields no segments; a text whose
// length is an exact multiple of maxLength yields no trailing empty segment.
// The same input always yields the same segments.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	segments := make([]string, 0, (len(runes)+c.maxLength-1)/c.maxLength)
	for start := 0; start < len(runes); start += c.maxLength {
		end := start + c.maxLength
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}
