package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/evidentia-labs/evidentia/internal/adapters/driven/storage/memory"
	vectormem "github.com/evidentia-labs/evidentia/internal/adapters/driven/vectorindex/memory"
	"github.com/evidentia-labs/evidentia/internal/cache"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
	"github.com/evidentia-labs/evidentia/internal/core/services"
	"github.com/evidentia-labs/evidentia/internal/normalisers"
	"github.com/evidentia-labs/evidentia/internal/normalisers/plaintext"
	"github.com/evidentia-labs/evidentia/internal/postprocessors/chunker"
)

// --- Mock driven adapters ---

// mockObjectStore implements driven.ObjectStore in memory.
type mockObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string][]byte)}
}

func (m *mockObjectStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *mockObjectStore) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *mockObjectStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

func (m *mockObjectStore) Ping(_ context.Context) error {
	return nil
}

// mockEmbedder implements driven.EmbeddingService with a fixed vector.
type mockEmbedder struct {
	mu       sync.Mutex
	embedErr error
}

func (m *mockEmbedder) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedErr = err
}

func (m *mockEmbedder) vector() []float32 {
	return []float32{0.6, 0.8}
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector()
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int {
	return 2
}

func (m *mockEmbedder) ModelVersion() string {
	return "mock-embed-v1"
}

func (m *mockEmbedder) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbedder) Close() error {
	return nil
}

// mockLexical implements driven.LexicalIndex with canned hits.
type mockLexical struct {
	hits []driven.LexicalHit
}

func (m *mockLexical) Search(_ context.Context, _ domain.TenantID, _ string, _ int) ([]driven.LexicalHit, error) {
	return m.hits, nil
}

// mockGenerator implements driven.GenerationService.
type mockGenerator struct {
	answer      string
	completeErr error
}

func (m *mockGenerator) Complete(_ context.Context, _, _ string) (string, error) {
	if m.completeErr != nil {
		return "", m.completeErr
	}
	return m.answer, nil
}

func (m *mockGenerator) ModelName() string {
	return "mock-gen"
}

func (m *mockGenerator) Ping(_ context.Context) error {
	return nil
}

func (m *mockGenerator) Close() error {
	return nil
}

// --- Fixture ---

type apiFixture struct {
	store     *storagemem.Store
	objects   *mockObjectStore
	embedder  *mockEmbedder
	vectors   *vectormem.Index
	generator *mockGenerator
	ingestor  *services.Ingestor
	server    *Server
}

func newAPIFixture(t *testing.T, cfg Config) *apiFixture {
	t.Helper()

	f := &apiFixture{
		store:     storagemem.NewStore(),
		objects:   newMockObjectStore(),
		embedder:  &mockEmbedder{},
		vectors:   vectormem.NewIndex(),
		generator: &mockGenerator{answer: "The evidence shows revenue grew [1]."},
	}

	registry := normalisers.NewRegistry()
	registry.Register(plaintext.New())

	f.ingestor = services.NewIngestor(
		f.store.DocumentStore(),
		f.store.StatusStore(),
		f.objects,
		registry,
		chunker.New(),
		f.embedder,
		f.vectors,
		services.IngestorConfig{QueueSize: 16, Workers: 2},
	)
	require.NoError(t, f.ingestor.Start(context.Background()))
	t.Cleanup(func() { _ = f.ingestor.Stop() })

	searcher := services.NewSearcher(
		f.store.DocumentStore(),
		&mockLexical{},
		f.vectors,
		f.embedder,
		cache.New(16, time.Minute),
		services.SearcherConfig{},
	)
	answerer := services.NewAnswerer(searcher, f.generator, services.AnswererConfig{})
	documents := services.NewDocumentService(
		f.store.DocumentStore(),
		f.store.StatusStore(),
		f.objects,
		f.vectors,
	)

	f.server = NewServer(f.ingestor, searcher, answerer, documents, cfg)
	return f
}

// seedDocument loads a searchable document directly into the stores,
// bypassing the pipeline.
func (f *apiFixture) seedDocument(t *testing.T, tenant, id, filename, text string) {
	t.Helper()
	ctx := context.Background()

	tenantID, err := domain.ParseTenantID(tenant)
	require.NoError(t, err)

	ref, err := f.objects.Put(ctx, tenant+"/"+id, []byte(text), "text/plain")
	require.NoError(t, err)

	doc := &domain.Document{
		ID:         id,
		TenantID:   tenantID,
		Filename:   filename,
		MIMEType:   "text/plain",
		ByteSize:   int64(len(text)),
		Checksum:   "blake3:" + id,
		UploadedBy: "tester",
		UploadedAt: time.Now().UTC(),
		StorageRef: ref,
	}
	require.NoError(t, f.store.DocumentStore().SaveDocument(ctx, doc))
	require.NoError(t, f.store.DocumentStore().ReplaceChunks(ctx, doc, []domain.Chunk{
		{DocumentID: id, Index: 0, Text: text},
	}))
	require.NoError(t, f.vectors.Upsert(ctx, []driven.IndexEntry{
		{
			Tenant:       tenantID,
			DocumentID:   id,
			ChunkIndex:   0,
			Vector:       []float32{0.6, 0.8},
			ModelVersion: "mock-embed-v1",
			Text:         text,
			DocumentName: filename,
		},
	}))
	require.NoError(t, f.store.StatusStore().Save(ctx, &domain.IngestionStatus{
		DocumentID:    id,
		State:         domain.IngestionCompleted,
		ChunksCreated: 1,
		UpdatedAt:     time.Now().UTC(),
	}))
}

// --- Request helpers ---

func authHeaders(req *http.Request, tenant, caps string) {
	req.Header.Set(headerTenantID, tenant)
	req.Header.Set(headerActor, "tester")
	if caps != "" {
		req.Header.Set(headerCapabilities, caps)
	}
}

func (f *apiFixture) doJSON(t *testing.T, method, path, caps string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	authHeaders(req, "tenant-a", caps)

	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) doUpload(t *testing.T, caps string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	authHeaders(req, "tenant-a", caps)

	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

// waitForCompleted polls the status endpoint until the document
// reaches the wanted state.
func (f *apiFixture) waitForState(t *testing.T, documentID, want string) statusResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := f.doJSON(t, http.MethodGet, "/api/v1/documents/"+documentID+"/ingestion-status", "ingest", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var status statusResponse
		decodeBody(t, w, &status)
		if status.State == want {
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("document %s stuck in state %q, want %q", documentID, status.State, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// --- Tests ---

func TestServer_HealthzWithoutAuth(t *testing.T) {
	f := newAPIFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestServer_MetricsExposed(t *testing.T) {
	f := newAPIFixture(t, Config{})

	// Serve one request so the counters exist.
	f.doJSON(t, http.MethodGet, "/api/v1/documents", "search", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "evidentia_http_requests_total")
}

func TestServer_MissingTenantHeader(t *testing.T) {
	f := newAPIFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_InvalidTenantHeader(t *testing.T) {
	f := newAPIFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	authHeaders(req, "tenant'; DROP TABLE documents;--", "search")
	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid tenant identifier")
}

func TestServer_UnknownCapability(t *testing.T) {
	f := newAPIFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	authHeaders(req, "tenant-a", "root")
	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_UploadToCompletion(t *testing.T) {
	f := newAPIFixture(t, Config{})

	w := f.doUpload(t, "ingest", map[string]string{
		"report.txt": "Revenue grew twelve percent in the third quarter.",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp uploadResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Files, 1)
	file := resp.Files[0]
	assert.NotEmpty(t, file.ID)
	assert.Equal(t, "report.txt", file.Filename)
	assert.Equal(t, "pending", file.Status)
	assert.Empty(t, file.Error)

	status := f.waitForState(t, file.ID, "completed")
	assert.Equal(t, 1, status.ChunksCreated)
}

func TestServer_UploadMixedOutcomes(t *testing.T) {
	f := newAPIFixture(t, Config{})

	// PNG magic bytes are sniffed as an unsupported type.
	w := f.doUpload(t, "ingest", map[string]string{
		"report.txt": "Plain text evidence.",
		"photo.png":  "\x89PNG\r\n\x1a\nnot really an image",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp uploadResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Files, 2)

	byName := map[string]uploadFileResult{}
	for _, fr := range resp.Files {
		byName[fr.Filename] = fr
	}
	assert.NotEmpty(t, byName["report.txt"].ID)
	assert.Empty(t, byName["photo.png"].ID)
	assert.NotEmpty(t, byName["photo.png"].Error)
}

func TestServer_UploadAllRejected(t *testing.T) {
	f := newAPIFixture(t, Config{})

	w := f.doUpload(t, "ingest", map[string]string{
		"photo.png": "\x89PNG\r\n\x1a\nnot really an image",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp uploadResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Files, 1)
	assert.NotEmpty(t, resp.Files[0].Error)
}

func TestServer_UploadWithoutFilesField(t *testing.T) {
	f := newAPIFixture(t, Config{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "not a file"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	authHeaders(req, "tenant-a", "ingest")
	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_UploadWithoutIngestCapability(t *testing.T) {
	f := newAPIFixture(t, Config{})

	w := f.doUpload(t, "search", map[string]string{"report.txt": "text"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp uploadResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Files, 1)
	assert.Contains(t, resp.Files[0].Error, "capability")
}

func TestServer_StatusNotFound(t *testing.T) {
	f := newAPIFixture(t, Config{})

	w := f.doJSON(t, http.MethodGet, "/api/v1/documents/nope/ingestion-status", "ingest", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Search(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew twelve percent.")

	w := f.doJSON(t, http.MethodPost, "/api/v1/search", "search", map[string]any{
		"query": "revenue growth",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp searchResponseDTO
	decodeBody(t, w, &resp)
	require.Equal(t, 1, resp.TotalResults)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
	assert.Equal(t, "report.pdf", resp.Results[0].DocumentName)
	assert.False(t, resp.SearchFailed)
	assert.False(t, resp.Degraded)
	assert.GreaterOrEqual(t, resp.ProcessingTimeMS, int64(0))
}

func TestServer_SearchValidation(t *testing.T) {
	f := newAPIFixture(t, Config{})

	w := f.doJSON(t, http.MethodPost, "/api/v1/search", "search", map[string]any{
		"query": "   ",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.doJSON(t, http.MethodPost, "/api/v1/search", "search", map[string]any{
		"query": strings.Repeat("q", domain.MaxQueryLength+1),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_SearchWithoutCapability(t *testing.T) {
	f := newAPIFixture(t, Config{})

	w := f.doJSON(t, http.MethodPost, "/api/v1/search", "ingest", map[string]any{
		"query": "revenue",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_SearchFailureFlagged(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew twelve percent.")
	f.embedder.setErr(domain.ErrEmbeddingUnavailable)

	w := f.doJSON(t, http.MethodPost, "/api/v1/search", "search", map[string]any{
		"query": "revenue growth",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp searchResponseDTO
	decodeBody(t, w, &resp)
	assert.True(t, resp.SearchFailed)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Results)
}

func TestServer_SearchThresholdDefaultFromConfig(t *testing.T) {
	f := newAPIFixture(t, Config{ScoreThreshold: 1.1})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew twelve percent.")

	// The configured threshold filters everything out when the request
	// does not set one.
	w := f.doJSON(t, http.MethodPost, "/api/v1/search", "search", map[string]any{
		"query": "revenue growth",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp searchResponseDTO
	decodeBody(t, w, &resp)
	assert.Zero(t, resp.TotalResults)

	// An explicit zero keeps everything.
	w = f.doJSON(t, http.MethodPost, "/api/v1/search", "search", map[string]any{
		"query":           "revenue growth",
		"score_threshold": 0,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp = searchResponseDTO{}
	decodeBody(t, w, &resp)
	assert.Equal(t, 1, resp.TotalResults)
}

func TestServer_RAGSearchGrounded(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew twelve percent.")

	w := f.doJSON(t, http.MethodPost, "/api/v1/rag/search", "search", map[string]any{
		"query":         "revenue growth",
		"use_grounding": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ragSearchResponseDTO
	decodeBody(t, w, &resp)
	require.NotNil(t, resp.GroundedAnswer)
	assert.Equal(t, "The evidence shows revenue grew [1].", *resp.GroundedAnswer)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "doc-1", resp.Citations[0].DocumentID)
	assert.Equal(t, 1, resp.TotalResults)
	assert.False(t, resp.Degraded)
}

func TestServer_RAGSearchWithoutGrounding(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew twelve percent.")

	w := f.doJSON(t, http.MethodPost, "/api/v1/rag/search", "search", map[string]any{
		"query": "revenue growth",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ragSearchResponseDTO
	decodeBody(t, w, &resp)
	assert.Nil(t, resp.GroundedAnswer)
	assert.NotNil(t, resp.Citations)
	assert.Empty(t, resp.Citations)
	assert.Equal(t, 1, resp.TotalResults)
}

func TestServer_RAGSearchGenerationFallback(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew twelve percent.")
	f.generator.completeErr = domain.ErrGenerationUnavailable

	w := f.doJSON(t, http.MethodPost, "/api/v1/rag/search", "search", map[string]any{
		"query":         "revenue growth",
		"use_grounding": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ragSearchResponseDTO
	decodeBody(t, w, &resp)
	assert.Nil(t, resp.GroundedAnswer)
	assert.True(t, resp.Degraded)
	assert.Equal(t, 1, resp.TotalResults)
	assert.Len(t, resp.Citations, 1)
}

func TestServer_ReindexRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t, Config{})

	w := f.doJSON(t, http.MethodPost, "/api/v1/documents/reindex", "search,ingest", map[string]any{})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_Reindex(t *testing.T) {
	f := newAPIFixture(t, Config{})

	upload := f.doUpload(t, "ingest", map[string]string{"report.txt": "Reindexable evidence."})
	require.Equal(t, http.StatusAccepted, upload.Code)
	var uploaded uploadResponse
	decodeBody(t, upload, &uploaded)
	file := uploaded.Files[0]
	f.waitForState(t, file.ID, "completed")

	w := f.doJSON(t, http.MethodPost, "/api/v1/documents/reindex", "admin", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp reindexResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 1, resp.Requeued)

	f.waitForState(t, file.ID, "completed")
}

func TestServer_ListDocuments(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew.")
	f.seedDocument(t, "tenant-b", "doc-2", "other.txt", "Another tenant's file.")

	w := f.doJSON(t, http.MethodGet, "/api/v1/documents", "search", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp documentListResponse
	decodeBody(t, w, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "doc-1", resp.Documents[0].ID)
	assert.Equal(t, "completed", resp.Documents[0].State)
	assert.Equal(t, 1, resp.Documents[0].ChunksCreated)
}

func TestServer_GetDocument(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew.")

	w := f.doJSON(t, http.MethodGet, "/api/v1/documents/doc-1", "search", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc documentDTO
	decodeBody(t, w, &doc)
	assert.Equal(t, "report.pdf", doc.Filename)

	w = f.doJSON(t, http.MethodGet, "/api/v1/documents/missing", "search", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_DeleteDocument(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew.")

	w := f.doJSON(t, http.MethodDelete, "/api/v1/documents/doc-1", "admin", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.doJSON(t, http.MethodGet, "/api/v1/documents/doc-1", "search", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_DeleteRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t, Config{})
	f.seedDocument(t, "tenant-a", "doc-1", "report.pdf", "Revenue grew.")

	w := f.doJSON(t, http.MethodDelete, "/api/v1/documents/doc-1", "search,ingest", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_RateLimited(t *testing.T) {
	f := newAPIFixture(t, Config{RatePerMinute: 60, RateBurst: 1})

	first := f.doJSON(t, http.MethodGet, "/api/v1/documents", "search", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.doJSON(t, http.MethodGet, "/api/v1/documents", "search", nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestParseCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    []domain.Capability
		wantErr bool
	}{
		{name: "empty", header: "", want: nil},
		{name: "single", header: "search", want: []domain.Capability{domain.CapabilitySearch}},
		{
			name:   "all with spaces",
			header: " search, ingest ,admin ",
			want:   []domain.Capability{domain.CapabilitySearch, domain.CapabilityIngest, domain.CapabilityAdmin},
		},
		{name: "trailing comma", header: "search,", want: []domain.Capability{domain.CapabilitySearch}},
		{name: "unknown", header: "search,superuser", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCapabilities(tt.header)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
