package mcp

import (
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP
// server, plus the tenant context every call runs under. The server
// serves exactly one engagement; the tenant is fixed at startup.
type Ports struct {
	// Tenant is the identity all tool calls and resource reads use.
	Tenant domain.TenantContext

	// Search provides retrieval over the tenant's evidence.
	Search driving.SearchService

	// Answer provides grounded answers with citations.
	Answer driving.AnswerService

	// Documents lists the tenant's documents for resources. Optional;
	// without it the resources report nothing.
	Documents driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// Documents is optional.
	return nil
}
