package domain

import (
	"fmt"
	"time"
)

// IngestionState is a stage of the ingestion pipeline.
type IngestionState string

const (
	// IngestionPending means the document is queued.
	IngestionPending IngestionState = "pending"

	// IngestionChunking means text extraction and chunking are running.
	IngestionChunking IngestionState = "chunking"

	// IngestionEmbedding means chunk embeddings are being generated.
	IngestionEmbedding IngestionState = "embedding"

	// IngestionIndexing means vectors and chunk rows are being written.
	IngestionIndexing IngestionState = "indexing"

	// IngestionCompleted means the document is fully searchable.
	IngestionCompleted IngestionState = "completed"

	// IngestionFailed means the pipeline gave up; ErrorMessage says why.
	IngestionFailed IngestionState = "failed"
)

// stateRank orders the forward-only progression. Failed sits outside
// the ordering and is reachable from any non-terminal state.
var stateRank = map[IngestionState]int{
	IngestionPending:   0,
	IngestionChunking:  1,
	IngestionEmbedding: 2,
	IngestionIndexing:  3,
	IngestionCompleted: 4,
}

// Valid reports whether s is a known state.
func (s IngestionState) Valid() bool {
	if s == IngestionFailed {
		return true
	}
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether the pipeline has finished with s.
func (s IngestionState) Terminal() bool {
	return s == IngestionCompleted || s == IngestionFailed
}

// IngestionStatus tracks pipeline progress for one document. It also
// acts as the mutual-exclusion flag: a document in a non-terminal
// state rejects duplicate submissions.
type IngestionStatus struct {
	// DocumentID identifies the document.
	DocumentID string

	// State is the current pipeline stage.
	State IngestionState

	// ChunksCreated is the chunk count, set when indexing completes.
	ChunksCreated int

	// ErrorMessage holds a human-readable reason when State is failed.
	ErrorMessage string

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// NewIngestionStatus returns a pending status for a document.
func NewIngestionStatus(documentID string) *IngestionStatus {
	return &IngestionStatus{
		DocumentID: documentID,
		State:      IngestionPending,
		UpdatedAt:  time.Now().UTC(),
	}
}

// Advance moves the status forward to next. Moving backwards, moving
// out of a terminal state, or moving to failed (use Fail) returns
// ErrInvalidTransition.
func (s *IngestionStatus) Advance(next IngestionState) error {
	if !next.Valid() || next == IngestionFailed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, next)
	}
	if s.State.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s.State)
	}
	if stateRank[next] <= stateRank[s.State] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, next)
	}
	s.State = next
	s.ErrorMessage = ""
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail marks the pipeline as failed with a reason. Valid from any
// non-completed state; a completed document cannot retroactively fail.
func (s *IngestionStatus) Fail(reason string) error {
	if s.State == IngestionCompleted {
		return fmt.Errorf("%w: completed is terminal", ErrInvalidTransition)
	}
	s.State = IngestionFailed
	s.ErrorMessage = reason
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Reset returns the status to pending for an explicit retry or
// re-index. This is the only sanctioned way back.
func (s *IngestionStatus) Reset() {
	s.State = IngestionPending
	s.ChunksCreated = 0
	s.ErrorMessage = ""
	s.UpdatedAt = time.Now().UTC()
}
