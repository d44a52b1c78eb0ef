package driven

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// Chunker splits extracted text into citable chunks.
//
// Chunking is pure and deterministic: the same text and configuration
// always produce identical chunks, so a retry regenerates the set
// wholesale instead of patching it.
type Chunker interface {
	// Chunk splits the extracted text for a document. Positions are
	// recorded against the extracted text; page numbers come from the
	// extractor's page boundaries when present.
	Chunk(ctx context.Context, documentID string, text *domain.ExtractedText) ([]domain.Chunk, error)
}
