package httpapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// handleUpload accepts a multipart batch under the "files" field and
// submits each file for ingestion. The response reports per-file
// outcomes; the batch is 202 when at least one file was accepted and
// 400 when every file was rejected.
func (s *Server) handleUpload(c *gin.Context) {
	tc := tenantFrom(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("reading multipart form: "+err.Error()))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, errorBody("no files in upload; send them in the \"files\" field"))
		return
	}

	tenant := tc.Tenant().String()
	resp := uploadResponse{Files: make([]uploadFileResult, 0, len(files))}
	accepted := 0

	for _, fh := range files {
		content, err := readUploadFile(fh)
		if err != nil {
			s.metrics.uploadsRejected.WithLabelValues(tenant).Inc()
			resp.Files = append(resp.Files, uploadFileResult{Filename: fh.Filename, Error: err.Error()})
			continue
		}

		doc, err := s.ingest.Submit(c.Request.Context(), tc, domain.Upload{
			Filename:     fh.Filename,
			DeclaredMIME: fh.Header.Get("Content-Type"),
			Content:      content,
		})
		if err != nil {
			s.metrics.uploadsRejected.WithLabelValues(tenant).Inc()
			resp.Files = append(resp.Files, uploadFileResult{Filename: fh.Filename, Error: clientMessage(err)})
			continue
		}

		s.metrics.uploadsAccepted.WithLabelValues(tenant).Inc()
		accepted++
		resp.Files = append(resp.Files, uploadFileResult{
			ID:       doc.ID,
			Filename: doc.Filename,
			Size:     doc.ByteSize,
			Status:   string(domain.IngestionPending),
		})
	}

	status := http.StatusAccepted
	if accepted == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, resp)
}

// readUploadFile reads one multipart file fully into memory. Uploads
// are bounded by the policy size limits, applied again during Submit.
func readUploadFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleStatus returns the ingestion status for one document.
func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.ingest.Status(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(status))
}

// handleSearch runs retrieval. Validation failures are 4xx; an
// exhausted retrieval is 200 with search_failed set so callers can
// tell it apart from an honest empty result set.
func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("parsing request: "+err.Error()))
		return
	}

	tc := tenantFrom(c)
	start := time.Now()
	resp, err := s.search.Search(c.Request.Context(), tc, req.Query, s.searchOptions(req))
	if err != nil {
		respondError(c, err)
		return
	}

	s.metrics.searchesTotal.WithLabelValues(tc.Tenant().String(), searchOutcome(resp.Failed, resp.Degraded)).Inc()
	c.JSON(http.StatusOK, toSearchResponseDTO(resp, time.Since(start)))
}

// handleRAGSearch runs retrieval and, when grounding is requested,
// asks the generation provider for an answer backed by citations.
func (s *Server) handleRAGSearch(c *gin.Context) {
	var req ragSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("parsing request: "+err.Error()))
		return
	}

	tc := tenantFrom(c)
	tenant := tc.Tenant().String()
	opts := s.searchOptions(req.searchRequest)
	start := time.Now()

	if !req.UseGrounding {
		resp, err := s.search.Search(c.Request.Context(), tc, req.Query, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		s.metrics.searchesTotal.WithLabelValues(tenant, searchOutcome(resp.Failed, resp.Degraded)).Inc()
		c.JSON(http.StatusOK, ragSearchResponseDTO{
			searchResponseDTO: toSearchResponseDTO(resp, time.Since(start)),
			Citations:         []citationDTO{},
		})
		return
	}

	answer, err := s.answer.Answer(c.Request.Context(), tc, req.Query, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	s.metrics.searchesTotal.WithLabelValues(tenant, searchOutcome(false, answer.Degraded)).Inc()
	c.JSON(http.StatusOK, toRAGSearchResponseDTO(answer, time.Since(start)))
}

// searchOptions maps a request body onto domain options, filling the
// configured threshold when the field was absent.
func (s *Server) searchOptions(req searchRequest) domain.SearchOptions {
	opts := domain.SearchOptions{
		TopK:   req.TopK,
		Hybrid: req.Hybrid,
	}
	if req.ScoreThreshold != nil {
		opts.ScoreThreshold = *req.ScoreThreshold
	} else {
		opts.ScoreThreshold = s.cfg.ScoreThreshold
	}
	return opts
}

// handleReindex re-queues ingestion for the named documents, or for
// the whole tenant when none are named.
func (s *Server) handleReindex(c *gin.Context) {
	var req reindexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("parsing request: "+err.Error()))
		return
	}

	queued, err := s.ingest.Reindex(c.Request.Context(), tenantFrom(c), req.DocumentIDs)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			respondError(c, err)
			return
		}
		c.JSON(status, reindexResponse{Requeued: queued, Error: clientMessage(err)})
		return
	}
	c.JSON(http.StatusOK, reindexResponse{Requeued: queued})
}

// handleListDocuments returns the tenant's documents with their
// ingestion state.
func (s *Server) handleListDocuments(c *gin.Context) {
	overviews, err := s.documents.List(c.Request.Context(), tenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentListResponse(overviews))
}

// handleGetDocument returns one document's metadata.
func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.documents.Get(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentDTO(doc))
}

// handleDeleteDocument removes a document everywhere.
func (s *Server) handleDeleteDocument(c *gin.Context) {
	if err := s.documents.Delete(c.Request.Context(), tenantFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// clientMessage returns an error string safe to put in a response
// body. Internal faults are replaced with a generic message.
func clientMessage(err error) string {
	if statusForError(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
