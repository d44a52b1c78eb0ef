// Package openai provides an embedding service adapter for the OpenAI
// /embeddings API and compatible endpoints (Azure OpenAI, local
// inference servers, enterprise gateways).
package openai

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
	"golang.org/x/oauth2/clientcredentials"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultModel           = "text-embedding-3-small"
	DefaultTimeout         = 60 * time.Second
	DefaultBatchSize       = 64
	DefaultRetryMaxElapsed = 30 * time.Second
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key. Required unless OAuth client
	// credentials are configured instead.
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int

	// BatchSize caps how many inputs go into a single API call
	// (default: 64). Larger slices are split and recombined in order.
	BatchSize int

	// RetryMaxElapsed bounds how long transient failures are retried
	// before the service reports itself unavailable (default: 30s).
	RetryMaxElapsed time.Duration

	// OAuthTokenURL enables OAuth2 client-credentials authentication
	// instead of a static API key. Enterprise gateways front OpenAI
	// this way.
	OAuthTokenURL string

	// OAuthClientID is the client ID for the token endpoint.
	OAuthClientID string

	// OAuthClientSecret is the client secret for the token endpoint.
	OAuthClientSecret string

	// OAuthScopes are optional scopes requested with the token.
	OAuthScopes []string
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	batchSize  int

	retryMaxElapsed time.Duration
	retryInitial    time.Duration
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" && cfg.OAuthTokenURL == "" {
		return nil, fmt.Errorf("openai: API key or OAuth client credentials required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RetryMaxElapsed == 0 {
		cfg.RetryMaxElapsed = DefaultRetryMaxElapsed
	}

	// Determine dimensions
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536 // Default fallback
		}
	}

	client := &http.Client{Timeout: cfg.Timeout}
	apiKey := cfg.APIKey
	if cfg.OAuthTokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			TokenURL:     cfg.OAuthTokenURL,
			Scopes:       cfg.OAuthScopes,
		}
		client = cc.Client(context.Background())
		client.Timeout = cfg.Timeout
		// The oauth2 transport injects the bearer token.
		apiKey = ""
	}

	return &EmbeddingService{
		client:          client,
		baseURL:         cfg.BaseURL,
		apiKey:          apiKey,
		model:           cfg.Model,
		dimensions:      dimensions,
		batchSize:       cfg.BatchSize,
		retryMaxElapsed: cfg.RetryMaxElapsed,
		retryInitial:    500 * time.Millisecond,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Slices larger
// than the configured batch size are split into sequential API calls;
// the result preserves input order across splits.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}

// embedBatch issues a single /embeddings call with retry on transient
// failures.
func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Model: s.model,
		Input: texts,
	}

	// Only include dimensions for text-embedding-3-* models
	if strings.HasPrefix(s.model, "text-embedding-3-") && s.dimensions > 0 {
		reqBody.Dimensions = s.dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var embeddings [][]float32
	operation := func() error {
		result, err := s.doEmbedRequest(ctx, jsonBody, len(texts))
		if err != nil {
			return err
		}
		embeddings = result
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInitial
	bo.MaxElapsedTime = s.retryMaxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// doEmbedRequest performs one API call. Transient failures come back
// wrapped in domain.ErrEmbeddingUnavailable so retry exhaustion
// surfaces as unavailability; API-level rejections are permanent.
func (s *EmbeddingService) doEmbedRequest(ctx context.Context, jsonBody []byte, count int) ([][]float32, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrEmbeddingUnavailable, err)
	}

	if retryableStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: status %d", domain.ErrEmbeddingUnavailable, resp.StatusCode)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}

	if embedResp.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("openai error: %s", embedResp.Error.Message))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body)))
	}

	// Convert float64 to float32 and order by index
	embeddings := make([][]float32, count)
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= count {
			return nil, backoff.Permanent(fmt.Errorf("openai: embedding index %d out of range", data.Index))
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}

	for i, e := range embeddings {
		if e == nil {
			return nil, backoff.Permanent(fmt.Errorf("openai: missing embedding for input %d", i))
		}
	}

	return embeddings, nil
}

// retryableStatus reports whether a response status is worth retrying.
func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelVersion identifies the embedding model in use. Stored chunks
// and index entries carry this value.
func (s *EmbeddingService) ModelVersion() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
