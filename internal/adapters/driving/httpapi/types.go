package httpapi

import (
	"time"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
)

// uploadFileResult reports the outcome for one file of a multipart
// upload. Accepted files carry an id and pending status; rejected
// files carry the reason instead.
type uploadFileResult struct {
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename"`
	Size     int64  `json:"size,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

// uploadResponse wraps the per-file outcomes.
type uploadResponse struct {
	Files []uploadFileResult `json:"files"`
}

// statusResponse is the ingestion status for one document.
type statusResponse struct {
	DocumentID    string    `json:"document_id"`
	State         string    `json:"state"`
	ChunksCreated int       `json:"chunks_created"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toStatusResponse(status *domain.IngestionStatus) statusResponse {
	return statusResponse{
		DocumentID:    status.DocumentID,
		State:         string(status.State),
		ChunksCreated: status.ChunksCreated,
		ErrorMessage:  status.ErrorMessage,
		UpdatedAt:     status.UpdatedAt,
	}
}

// searchRequest is the body of POST /search. ScoreThreshold is a
// pointer so an explicit zero ("keep everything") is distinguishable
// from an absent field (use the configured default).
type searchRequest struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k"`
	ScoreThreshold *float64 `json:"score_threshold"`
	Hybrid         bool     `json:"hybrid"`
}

// ragSearchRequest extends the search body with grounding.
type ragSearchRequest struct {
	searchRequest
	UseGrounding bool `json:"use_grounding"`
}

// searchResultDTO is one retrieval hit on the wire.
type searchResultDTO struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	PageNumber   *int    `json:"page_number,omitempty"`
	Score        float64 `json:"score"`
	Excerpt      string  `json:"excerpt"`
}

func toSearchResultDTOs(results []domain.SearchResult) []searchResultDTO {
	out := make([]searchResultDTO, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultDTO{
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			ChunkIndex:   r.ChunkIndex,
			PageNumber:   r.PageNumber,
			Score:        r.Score,
			Excerpt:      r.Excerpt,
		})
	}
	return out
}

// searchResponseDTO is the body of a search response. A failed search
// still returns 200; SearchFailed distinguishes it from an honest
// empty result set.
type searchResponseDTO struct {
	Results          []searchResultDTO `json:"results"`
	TotalResults     int               `json:"total_results"`
	ProcessingTimeMS int64             `json:"processing_time_ms"`
	Degraded         bool              `json:"degraded,omitempty"`
	SearchFailed     bool              `json:"search_failed,omitempty"`
	Error            string            `json:"error,omitempty"`
}

func toSearchResponseDTO(resp *domain.SearchResponse, elapsed time.Duration) searchResponseDTO {
	return searchResponseDTO{
		Results:          toSearchResultDTOs(resp.Results),
		TotalResults:     len(resp.Results),
		ProcessingTimeMS: elapsed.Milliseconds(),
		Degraded:         resp.Degraded,
		SearchFailed:     resp.Failed,
		Error:            resp.FailureReason,
	}
}

// citationDTO backs one statement of a grounded answer.
type citationDTO struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	PageNumber   *int    `json:"page_number,omitempty"`
	Relevance    float64 `json:"relevance"`
	Excerpt      string  `json:"excerpt"`
}

// ragSearchResponseDTO extends the search response with the grounded
// answer. GroundedAnswer is null when generation did not run or fell
// back; Citations always accompany an answer.
type ragSearchResponseDTO struct {
	searchResponseDTO
	GroundedAnswer *string       `json:"grounded_answer,omitempty"`
	Citations      []citationDTO `json:"citations"`
}

func toRAGSearchResponseDTO(answer *domain.GroundedAnswer, elapsed time.Duration) ragSearchResponseDTO {
	dto := ragSearchResponseDTO{
		searchResponseDTO: searchResponseDTO{
			Results:          toSearchResultDTOs(answer.Results),
			TotalResults:     len(answer.Results),
			ProcessingTimeMS: elapsed.Milliseconds(),
			Degraded:         answer.Degraded,
		},
		Citations: make([]citationDTO, 0, len(answer.Citations)),
	}
	for _, cit := range answer.Citations {
		dto.Citations = append(dto.Citations, citationDTO{
			DocumentID:   cit.DocumentID,
			DocumentName: cit.DocumentName,
			ChunkIndex:   cit.ChunkIndex,
			PageNumber:   cit.PageNumber,
			Relevance:    cit.Relevance,
			Excerpt:      cit.Excerpt,
		})
	}
	if answer.Answered {
		text := answer.Answer
		dto.GroundedAnswer = &text
	}
	return dto
}

// reindexRequest names the documents to re-queue; empty means all.
type reindexRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

// reindexResponse reports how many documents were queued.
type reindexResponse struct {
	Requeued int    `json:"requeued"`
	Error    string `json:"error,omitempty"`
}

// documentDTO is a stored document on the wire.
type documentDTO struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MIMEType   string    `json:"mime_type"`
	ByteSize   int64     `json:"byte_size"`
	Checksum   string    `json:"checksum"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func toDocumentDTO(doc *domain.Document) documentDTO {
	return documentDTO{
		ID:         doc.ID,
		Filename:   doc.Filename,
		MIMEType:   doc.MIMEType,
		ByteSize:   doc.ByteSize,
		Checksum:   doc.Checksum,
		UploadedBy: doc.UploadedBy,
		UploadedAt: doc.UploadedAt,
	}
}

// documentOverviewDTO joins a document with its ingestion state for
// listings.
type documentOverviewDTO struct {
	documentDTO
	State         string `json:"state"`
	ChunksCreated int    `json:"chunks_created"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// documentListResponse wraps a tenant's documents.
type documentListResponse struct {
	Documents []documentOverviewDTO `json:"documents"`
	Total     int                   `json:"total"`
}

func toDocumentListResponse(overviews []driving.DocumentOverview) documentListResponse {
	docs := make([]documentOverviewDTO, 0, len(overviews))
	for i := range overviews {
		o := &overviews[i]
		docs = append(docs, documentOverviewDTO{
			documentDTO:   toDocumentDTO(&o.Document),
			State:         string(o.State),
			ChunksCreated: o.ChunksCreated,
			ErrorMessage:  o.ErrorMessage,
		})
	}
	return documentListResponse{Documents: docs, Total: len(docs)}
}
