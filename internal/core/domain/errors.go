package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist, or is
	// not visible to the requesting tenant. The two cases are
	// deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	// Validation failures are rejected synchronously and never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no normaliser handles the MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrIngestionInProgress indicates the document already has a
	// pipeline run in flight. At most one run per document.
	ErrIngestionInProgress = errors.New("ingestion in progress")

	// ErrInvalidTransition indicates an ingestion status regression
	// was attempted. Status only moves forward; retries go through an
	// explicit reset.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrQueueFull indicates the ingestion queue is at capacity.
	ErrQueueFull = errors.New("ingestion queue full")

	// ErrCapabilityDenied indicates the tenant context lacks a
	// required capability.
	ErrCapabilityDenied = errors.New("capability denied")

	// ErrIsolationViolation indicates an operation attempted to cross
	// a tenant boundary. This should be structurally impossible; any
	// occurrence is security-relevant and must be logged as such.
	ErrIsolationViolation = errors.New("tenant isolation violation")

	// ErrRateLimited indicates the tenant exceeded its query rate.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding provider could
	// not be reached after retries.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index could not
	// be reached after retries.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrGenerationUnavailable indicates the generation provider failed
	// or timed out. Retrieval results stand on their own; callers fall
	// back to an ungrounded response.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
)
