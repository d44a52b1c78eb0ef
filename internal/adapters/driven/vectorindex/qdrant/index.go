// Package qdrant implements the vector index port against the Qdrant
// REST API.
//
// Every point carries its tenant in the payload and every search and
// delete goes through a filter built from validated identifiers, so a
// query can never reach another tenant's vectors.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultCollection      = "evidentia_chunks"
	DefaultTimeout         = 15 * time.Second
	DefaultRetryMaxElapsed = 15 * time.Second
)

// pointNamespace scopes deterministic point IDs. Point identity is the
// SHA1 UUID of tenant/document/chunk, so re-upserting a chunk replaces
// its previous vector instead of accumulating duplicates.
var pointNamespace = uuid.MustParse("b6a7c8d0-4e21-4f3b-9d5a-8c1e2f730a44")

// Config holds Qdrant connection settings.
type Config struct {
	// URL is the Qdrant base URL, e.g. http://localhost:6333.
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name (default: evidentia_chunks).
	Collection string

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration

	// RetryMaxElapsed bounds how long transient failures are retried
	// (default: 15s).
	RetryMaxElapsed time.Duration
}

// Index is a REST client to Qdrant assuming cosine distance.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	retryMaxElapsed time.Duration
	retryInitial    time.Duration
}

// New creates a Qdrant-backed vector index. No network calls are made
// here; EnsureCollection does the setup.
func New(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant: URL is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryMaxElapsed == 0 {
		cfg.RetryMaxElapsed = DefaultRetryMaxElapsed
	}

	return &Index{
		url:             strings.TrimRight(cfg.URL, "/"),
		apiKey:          cfg.APIKey,
		collection:      cfg.Collection,
		client:          &http.Client{Timeout: cfg.Timeout},
		retryMaxElapsed: cfg.RetryMaxElapsed,
		retryInitial:    500 * time.Millisecond,
	}, nil
}

// ==================== Setup ====================

// EnsureCollection creates the collection and its payload indexes if
// missing. Qdrant accepts re-creation of an existing collection with
// the same schema, so this is safe to run at every startup.
func (x *Index) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := x.doJSON(ctx, http.MethodPut, x.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	// Keyword indexes keep tenant and model filters cheap as the
	// collection grows.
	for _, field := range []string{"tenant_id", "document_id", "model_version"} {
		idx := map[string]any{
			"field_name":   field,
			"field_schema": "keyword",
		}
		if err := x.doJSON(ctx, http.MethodPut, x.collectionURL("/index"), idx, nil); err != nil {
			return fmt.Errorf("creating %s payload index: %w", field, err)
		}
	}

	return nil
}

// ==================== VectorIndex ====================

// Upsert inserts or replaces entries.
func (x *Index) Upsert(ctx context.Context, entries []driven.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		if err := validTenant(e.Tenant); err != nil {
			return err
		}
		if e.DocumentID == "" || len(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %d missing document id or vector", domain.ErrInvalidInput, i)
		}

		payload := map[string]any{
			"tenant_id":     e.Tenant.String(),
			"document_id":   e.DocumentID,
			"chunk_index":   e.ChunkIndex,
			"model_version": e.ModelVersion,
			"text":          e.Text,
			"document_name": e.DocumentName,
		}
		if e.PageNumber != nil {
			payload["page_number"] = *e.PageNumber
		}

		points[i] = map[string]any{
			"id":      pointID(e.Tenant, e.DocumentID, e.ChunkIndex),
			"vector":  e.Vector,
			"payload": payload,
		}
	}

	body := map[string]any{"points": points}
	if err := x.doJSON(ctx, http.MethodPut, x.collectionURL("/points?wait=true"), body, nil); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

// DeleteDocument removes all entries for a document.
func (x *Index) DeleteDocument(ctx context.Context, tenant domain.TenantID, documentID string) error {
	if err := validTenant(tenant); err != nil {
		return err
	}
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	body := map[string]any{
		"filter": searchFilter{Must: []fieldMatch{
			matchField("tenant_id", tenant.String()),
			matchField("document_id", documentID),
		}},
	}
	if err := x.doJSON(ctx, http.MethodPost, x.collectionURL("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("deleting document points: %w", err)
	}
	return nil
}

// DeleteTenant removes every entry for a tenant.
func (x *Index) DeleteTenant(ctx context.Context, tenant domain.TenantID) error {
	if err := validTenant(tenant); err != nil {
		return err
	}

	body := map[string]any{
		"filter": searchFilter{Must: []fieldMatch{
			matchField("tenant_id", tenant.String()),
		}},
	}
	if err := x.doJSON(ctx, http.MethodPost, x.collectionURL("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("deleting tenant points: %w", err)
	}
	return nil
}

// Search finds the nearest entries within the query's tenant.
func (x *Index) Search(ctx context.Context, query driven.VectorQuery) ([]driven.VectorHit, error) {
	if err := validTenant(query.Tenant); err != nil {
		return nil, err
	}
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is required", domain.ErrInvalidInput)
	}

	topK := query.TopK
	if topK <= 0 {
		topK = 10
	}

	must := []fieldMatch{matchField("tenant_id", query.Tenant.String())}
	if query.ModelVersion != "" {
		must = append(must, matchField("model_version", query.ModelVersion))
	}

	body := map[string]any{
		"vector":       query.Vector,
		"limit":        topK,
		"with_payload": true,
		"filter":       searchFilter{Must: must},
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := x.doJSON(ctx, http.MethodPost, x.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := driven.VectorHit{Score: r.Score}
		if v, ok := r.Payload["document_id"].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := r.Payload["chunk_index"].(float64); ok {
			hit.ChunkIndex = int(v)
		}
		if hit.DocumentID == "" {
			continue
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Ping validates the index is reachable.
func (x *Index) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.collectionURL(""), http.NoBody)
	if err != nil {
		return fmt.Errorf("qdrant: creating ping request: %w", err)
	}
	x.setHeaders(req)

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrVectorIndexUnavailable, resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (x *Index) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// ==================== Filters ====================

// fieldMatch is one exact-match condition in a Qdrant filter.
type fieldMatch struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value any `json:"value"`
}

// searchFilter is the conjunction of its conditions.
type searchFilter struct {
	Must []fieldMatch `json:"must"`
}

func matchField(key string, value any) fieldMatch {
	return fieldMatch{Key: key, Match: matchValue{Value: value}}
}

// validTenant re-validates a tenant identifier at the index boundary.
// Services validate first, so an invalid tenant reaching this point is
// treated as an isolation violation rather than plain bad input.
func validTenant(tenant domain.TenantID) error {
	if _, err := domain.ParseTenantID(tenant.String()); err != nil {
		return fmt.Errorf("%w: tenant %q", domain.ErrIsolationViolation, tenant.String())
	}
	return nil
}

// pointID derives the deterministic UUID for a chunk's point.
func pointID(tenant domain.TenantID, documentID string, chunkIndex int) string {
	name := fmt.Sprintf("%s/%s/%d", tenant.String(), documentID, chunkIndex)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// ==================== HTTP plumbing ====================

func (x *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.url, x.collection, suffix)
}

func (x *Index) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}
}

// doJSON sends a JSON request with retry on transient failures and
// decodes the response into out when non-nil.
func (x *Index) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	operation := func() error {
		return x.doOnce(ctx, method, url, data, out)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = x.retryInitial
	bo.MaxElapsedTime = x.retryMaxElapsed

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

func (x *Index) doOnce(ctx context.Context, method, url string, data []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	x.setHeaders(req)

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if retryableStatus(resp.StatusCode) {
		return fmt.Errorf("%w: status %d", domain.ErrVectorIndexUnavailable, resp.StatusCode)
	}

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return backoff.Permanent(fmt.Errorf("qdrant %s %s: status %d: %s", method, url, resp.StatusCode, detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// retryableStatus reports whether a response status is worth retrying.
func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}
