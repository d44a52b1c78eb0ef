package driven

import "context"

// GenerationService produces grounded answers from retrieval context.
// This is an optional service - when nil, retrieval results are
// returned without an answer.
//
// Implementations talk to an OpenAI-compatible /chat/completions
// endpoint. Failures here must never fail the request that triggered
// generation; callers fall back to ranked results.
type GenerationService interface {
	// Complete generates a response to prompt under the given system
	// instruction.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// ModelName returns the generation model identifier.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
