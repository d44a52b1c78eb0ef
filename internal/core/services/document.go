package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
	"github.com/evidentia-labs/evidentia/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages a tenant's stored documents.
type DocumentService struct {
	docStore    driven.DocumentStore
	statusStore driven.StatusStore
	objects     driven.ObjectStore
	vectors     driven.VectorIndex
}

// NewDocumentService creates the document service.
func NewDocumentService(
	docStore driven.DocumentStore,
	statusStore driven.StatusStore,
	objects driven.ObjectStore,
	vectors driven.VectorIndex,
) *DocumentService {
	return &DocumentService{
		docStore:    docStore,
		statusStore: statusStore,
		objects:     objects,
		vectors:     vectors,
	}
}

// List returns the tenant's documents joined with their ingestion
// status, newest first. A document without a status row is shown as
// pending.
func (s *DocumentService) List(ctx context.Context, tc domain.TenantContext) ([]driving.DocumentOverview, error) {
	docs, err := s.docStore.ListDocuments(ctx, tc.Tenant())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	overviews := make([]driving.DocumentOverview, 0, len(docs))
	for _, doc := range docs {
		overview := driving.DocumentOverview{
			Document: doc,
			State:    domain.IngestionPending,
		}
		status, err := s.statusStore.Get(ctx, doc.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get status for %s: %w", doc.ID, err)
		}
		if status != nil {
			overview.State = status.State
			overview.ChunksCreated = status.ChunksCreated
			overview.ErrorMessage = status.ErrorMessage
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, tc domain.TenantContext, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, tc.Tenant(), documentID)
}

// Delete removes a document everywhere: vector index, chunk rows,
// status and stored bytes. Vectors go first; if the index cannot be
// reached the document stays intact rather than leaving unreachable
// vectors searchable.
func (s *DocumentService) Delete(ctx context.Context, tc domain.TenantContext, documentID string) error {
	if err := tc.Require(domain.CapabilityAdmin); err != nil {
		return err
	}
	tenant := tc.Tenant()

	doc, err := s.docStore.GetDocument(ctx, tenant, documentID)
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteDocument(ctx, tenant, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, tenant, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if doc.StorageRef != "" {
		if err := s.objects.Delete(ctx, doc.StorageRef); err != nil {
			logger.Warn("Delete stored bytes for %s: %v", documentID, err)
		}
	}

	logger.Info("Deleted document %s for tenant %s", documentID, tenant)
	return nil
}
