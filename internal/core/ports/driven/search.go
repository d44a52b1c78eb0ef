package driven

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// LexicalIndex provides full-text keyword search over chunk text.
// Backed by SQLite FTS5 BM25; rows are maintained alongside chunk
// rows by the document store, so this port is read-only.
type LexicalIndex interface {
	// Search performs a keyword search within a tenant and returns
	// matching chunks with scores, higher is better.
	Search(ctx context.Context, tenant domain.TenantID, query string, limit int) ([]LexicalHit, error)
}

// LexicalHit represents a keyword search result.
type LexicalHit struct {
	// DocumentID is the matched chunk's document.
	DocumentID string

	// ChunkIndex is the matched chunk's position.
	ChunkIndex int

	// Score is the BM25 relevance, higher is better.
	Score float64
}
