package domain

// Query length bounds, enforced before any network call is made.
const (
	MinQueryLength = 1
	MaxQueryLength = 1000
)

// SearchOptions configures a retrieval request.
type SearchOptions struct {
	// TopK is the maximum number of results. Zero means the
	// configured default; values above the configured ceiling are
	// clamped.
	TopK int

	// ScoreThreshold drops results scoring below it. Zero keeps
	// everything.
	ScoreThreshold float64

	// Hybrid blends lexical BM25 scores with vector similarity.
	Hybrid bool
}

// SearchResult represents a single retrieval hit. Results are
// ephemeral; they are never persisted.
type SearchResult struct {
	// DocumentID is the matched document.
	DocumentID string

	// DocumentName is the document filename, for display.
	DocumentName string

	// ChunkIndex is the matched chunk's position in the document.
	ChunkIndex int

	// PageNumber is the source page, when known.
	PageNumber *int

	// Score is the blended relevance score, higher is better.
	Score float64

	// Excerpt is the chunk text, truncated for display.
	Excerpt string
}

// ChunkRef returns the composite chunk identifier for the hit.
func (r SearchResult) ChunkRef() string {
	return Chunk{DocumentID: r.DocumentID, Index: r.ChunkIndex}.Ref()
}

// SearchResponse is the outcome of a retrieval request. Failed
// distinguishes "the search could not run" from an honest empty
// result set; Degraded marks partial results (one hybrid leg down).
type SearchResponse struct {
	// Results are the ranked hits.
	Results []SearchResult

	// Degraded indicates partial results were returned.
	Degraded bool

	// Failed indicates retrieval itself failed after retries. Results
	// is empty and FailureReason says why.
	Failed bool

	// FailureReason is a human-readable cause when Failed is set.
	FailureReason string
}

// Citation backs a statement in a grounded answer. Citations are
// derived mechanically from the retrieval results that were offered
// to the generation model, never parsed out of generated text.
type Citation struct {
	// DocumentID is the cited document.
	DocumentID string

	// DocumentName is the document filename, for display.
	DocumentName string

	// ChunkIndex is the cited chunk's position.
	ChunkIndex int

	// PageNumber is the source page, when known.
	PageNumber *int

	// Relevance is the retrieval score clamped to [0,1].
	Relevance float64

	// Excerpt is the cited passage.
	Excerpt string
}

// GroundedAnswer is the outcome of a retrieval-augmented request.
// When generation is unavailable the answer is absent, Degraded is
// set and the ranked results still stand.
type GroundedAnswer struct {
	// Answer is the generated text. Only meaningful when Answered.
	Answer string

	// Answered indicates generation succeeded.
	Answered bool

	// Citations back the answer, one per context passage offered.
	Citations []Citation

	// Results are the underlying retrieval hits.
	Results []SearchResult

	// Degraded indicates the answer fell back or retrieval was partial.
	Degraded bool
}
