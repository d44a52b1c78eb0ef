// Package tui provides the interactive ingestion monitor for evidentia.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the monitor.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Tenant is the tenant context the monitor operates under.
	Tenant domain.TenantContext

	// Documents lists the tenant's documents with ingestion state.
	Documents driving.DocumentService

	// Ingest requeues failed documents. Optional; the retry action is
	// disabled when nil.
	Ingest driving.IngestionService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(tenant domain.TenantContext, documents driving.DocumentService, ingest driving.IngestionService) *Ports {
	return &Ports{
		Tenant:    tenant,
		Documents: documents,
		Ingest:    ingest,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	// Ingest is optional.
	return nil
}
