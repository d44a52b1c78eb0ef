package driving

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// DocumentService manages a tenant's documents.
type DocumentService interface {
	// List returns the tenant's documents with their ingestion state,
	// newest first.
	List(ctx context.Context, tc domain.TenantContext) ([]DocumentOverview, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, tc domain.TenantContext, documentID string) (*domain.Document, error)

	// Delete removes a document everywhere: vector index, chunk rows,
	// status and stored bytes. Requires CapabilityAdmin.
	Delete(ctx context.Context, tc domain.TenantContext, documentID string) error
}

// DocumentOverview joins a document with its ingestion status for
// listings and the monitor view.
type DocumentOverview struct {
	// Document is the stored document.
	Document domain.Document

	// State is the current pipeline stage.
	State domain.IngestionState

	// ChunksCreated is the chunk count once indexing completed.
	ChunksCreated int

	// ErrorMessage holds the failure reason when State is failed.
	ErrorMessage string
}
