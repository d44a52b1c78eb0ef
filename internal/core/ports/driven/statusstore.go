package driven

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// StatusStore persists ingestion progress per document.
type StatusStore interface {
	// Save stores or updates a status.
	Save(ctx context.Context, status *domain.IngestionStatus) error

	// Get retrieves the status for a document.
	// Returns domain.ErrNotFound when the document has no status row.
	Get(ctx context.Context, documentID string) (*domain.IngestionStatus, error)

	// Delete removes the status for a document.
	Delete(ctx context.Context, documentID string) error
}
