package driven

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// IndexEntry is one chunk's presence in the vector index. The tenant
// travels with the entry; implementations must write it into the
// point payload so every search can filter on it.
type IndexEntry struct {
	// Tenant is the owning tenant, always equal to the document's.
	Tenant domain.TenantID

	// DocumentID is the parent document.
	DocumentID string

	// ChunkIndex is the chunk's position in the document.
	ChunkIndex int

	// Vector is the embedding.
	Vector []float32

	// ModelVersion identifies the embedding model for the vector.
	ModelVersion string

	// Text is the chunk text, stored for payload-level hydration.
	Text string

	// DocumentName is the document filename, for display.
	DocumentName string

	// PageNumber is the source page, when known.
	PageNumber *int
}

// VectorQuery is a tenant-scoped similarity search.
type VectorQuery struct {
	// Tenant restricts the search to one tenant's entries.
	Tenant domain.TenantID

	// Vector is the query embedding.
	Vector []float32

	// ModelVersion restricts matches to entries from this model.
	ModelVersion string

	// TopK is the maximum number of hits.
	TopK int
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// DocumentID is the matched chunk's document.
	DocumentID string

	// ChunkIndex is the matched chunk's position.
	ChunkIndex int

	// Score is the cosine similarity, higher is better.
	Score float64
}

// VectorIndex provides tenant-partitioned vector storage and search.
// Backed by Qdrant; filter expressions are built from validated typed
// identifiers only.
type VectorIndex interface {
	// Upsert inserts or replaces entries. Point identity is derived
	// from (tenant, document, chunk index), so re-ingestion writes
	// over prior vectors instead of duplicating them.
	Upsert(ctx context.Context, entries []IndexEntry) error

	// DeleteDocument removes all entries for a document.
	DeleteDocument(ctx context.Context, tenant domain.TenantID, documentID string) error

	// DeleteTenant removes every entry for a tenant.
	DeleteTenant(ctx context.Context, tenant domain.TenantID) error

	// Search finds the nearest entries within the query's tenant.
	Search(ctx context.Context, query VectorQuery) ([]VectorHit, error)

	// Ping validates the index is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
