package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations talk to an OpenAI-compatible /embeddings endpoint,
// which covers hosted providers and local inference servers alike.
// Transient failures are retried inside the adapter with exponential
// backoff; exhaustion surfaces as domain.ErrEmbeddingUnavailable.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently,
	// splitting into provider-sized batches while preserving order.
	// A batch that cannot complete fails as a whole.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This is determined by the model and must match VectorIndex configuration.
	Dimensions() int

	// ModelVersion identifies the embedding model. Index entries carry
	// it so vectors from different models never mix in one search.
	ModelVersion() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to verify connectivity.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
