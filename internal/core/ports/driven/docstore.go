package driven

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
//
// Every read takes the tenant explicitly; a document belonging to a
// different tenant is reported as domain.ErrNotFound, never leaked.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID within a tenant.
	GetDocument(ctx context.Context, tenant domain.TenantID, id string) (*domain.Document, error)

	// FindByChecksum looks up a tenant's document by content checksum.
	// Returns domain.ErrNotFound when no document matches.
	FindByChecksum(ctx context.Context, tenant domain.TenantID, checksum string) (*domain.Document, error)

	// ListDocuments returns all documents for a tenant, newest first.
	ListDocuments(ctx context.Context, tenant domain.TenantID) ([]domain.Document, error)

	// DeleteDocument removes a document, its chunks and its status row.
	DeleteDocument(ctx context.Context, tenant domain.TenantID, id string) error

	// ReplaceChunks atomically swaps a document's chunks: prior rows
	// (and lexical index entries) are deleted and the new set inserted
	// in one transaction.
	ReplaceChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetChunks retrieves all chunks for a document, ordered by index.
	GetChunks(ctx context.Context, tenant domain.TenantID, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a single chunk by document and index.
	GetChunk(ctx context.Context, tenant domain.TenantID, documentID string, index int) (*domain.Chunk, error)
}
