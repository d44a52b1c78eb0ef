// Package chunker provides fixed-size text chunking with overlap.
package chunker

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits extracted text into fixed-size overlapping chunks.
// Chunking is pure: the same input and configuration always produce
// identical chunks, positions and page numbers.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// ChunkSize returns the configured window size in characters.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap in characters.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits the extracted text into chunks. Characters are counted
// in runes so multi-byte text chunks the same as ASCII. Every rune of
// input lands in at least one chunk; empty input produces a single
// empty chunk so the document still has a citable unit.
func (p *Processor) Chunk(ctx context.Context, documentID string, text *domain.ExtractedText) ([]domain.Chunk, error) {
	runes := []rune(text.Text)
	total := len(runes)

	if total == 0 {
		return []domain.Chunk{{
			DocumentID: documentID,
			Index:      0,
			Text:       "",
			CharStart:  0,
			CharEnd:    0,
			PageNumber: text.PageFor(0),
		}}, nil
	}

	step := p.chunkSize - p.overlap

	// Estimate number of chunks
	estimated := (total / step) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	index := 0
	for start := 0; start < total; start += step {
		end := start + p.chunkSize
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      index,
			Text:       string(runes[start:end]),
			CharStart:  start,
			CharEnd:    end,
			PageNumber: text.PageFor(start),
		})
		index++

		// The final window reaches the end; a further step would only
		// re-emit overlap.
		if end == total {
			break
		}
	}

	return chunks, nil
}
