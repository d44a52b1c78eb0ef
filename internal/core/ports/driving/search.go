package driving

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// SearchService provides retrieval over a tenant's indexed evidence.
type SearchService interface {
	// Search runs a query within the tenant. Validation failures
	// return an error; provider failures after retries return a
	// response with Failed set, so callers can always tell "no
	// matches" from "search failed". Requires CapabilitySearch.
	Search(ctx context.Context, tc domain.TenantContext, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
