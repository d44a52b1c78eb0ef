package driving

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// IngestionService accepts uploads and tracks pipeline progress.
type IngestionService interface {
	// Submit validates an upload, stores it and queues ingestion.
	// It returns once the document is accepted with a pending status;
	// the pipeline runs in the background. Requires CapabilityIngest.
	Submit(ctx context.Context, tc domain.TenantContext, upload domain.Upload) (*domain.Document, error)

	// Status returns the ingestion status for a document the tenant
	// can see.
	Status(ctx context.Context, tc domain.TenantContext, documentID string) (*domain.IngestionStatus, error)

	// Reindex queues re-ingestion from stored bytes for the given
	// documents, or for all the tenant's documents when none are
	// named. This is the model-migration and retry path. Requires
	// CapabilityAdmin. Returns the number of documents queued.
	Reindex(ctx context.Context, tc domain.TenantContext, documentIDs []string) (int, error)
}
