package driving

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// AnswerService produces grounded answers with citations on top of
// retrieval.
type AnswerService interface {
	// Answer retrieves context for the query and asks the generation
	// provider for an answer backed by citations. When generation is
	// unavailable the response degrades to ranked results without an
	// answer; the call still succeeds. Requires CapabilitySearch.
	Answer(ctx context.Context, tc domain.TenantContext, query string, opts domain.SearchOptions) (*domain.GroundedAnswer, error)
}
