// Package chunker splits linear document text into bounded, overlapping
// segments ready for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/poiesic/kbase/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 100
)

// Separators are tried largest first: paragraph, line, word, character.
var Separators = []string{"\n\n", "\n", " ", ""}

// Chunker applies one recursive, boundary-aware splitting policy.
type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.TextSplitter
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize overrides DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithChunkOverlap overrides DefaultChunkOverlap.
func WithChunkOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a Chunker. An overlap not smaller than the chunk size is
// clamped to a tenth of the size.
func New(opts ...Option) *Chunker {
	c := &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 10
	}
	c.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.size),
		textsplitter.WithChunkOverlap(c.overlap),
		textsplitter.WithSeparators(Separators),
	)
	return c
}

// Size returns the target chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split segments text. It fails with core.ErrEmptyContent when no non-blank
// chunk is produced.
func (c *Chunker) Split(text string) ([]string, error) {
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	chunks := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, p)
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", core.ErrEmptyContent)
	}
	return chunks, nil
}
