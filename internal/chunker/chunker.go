// Package chunker provides fixed-size text chunking with overlap.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/semdex/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits text into fixed-size overlapping chunks, preferring
// to break at whitespace near the chunk boundary.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split returns the chunk texts for the content, in order.
// Empty or whitespace-only content yields no chunks.
func (c *Chunker) Split(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	runes := []rune(content)
	if len(runes) <= c.chunkSize {
		return []string{content}
	}

	step := c.chunkSize - c.overlap
	estimated := (len(runes) / step) + 1
	chunks := make([]string, 0, estimated)

	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakAtWhitespace(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - c.overlap
		if next <= start {
			// Large overlaps with early break points must still advance
			next = start + 1
		}
		start = next
	}

	return chunks
}

// breakAtWhitespace walks back from end looking for a whitespace
// boundary in the final quarter of the chunk. Falls back to the hard
// boundary when the chunk has no convenient break point.
func breakAtWhitespace(runes []rune, start, end int) int {
	limit := start + (end-start)*3/4
	for i := end; i > limit; i-- {
		if isSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func isSpace(r rune) bool {
	if r > utf8.RuneSelf {
		return strings.ContainsRune("   ", r)
	}
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
