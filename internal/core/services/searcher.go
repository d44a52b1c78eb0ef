package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/evidentia-labs/evidentia/internal/cache"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
	"github.com/evidentia-labs/evidentia/internal/logger"
)

// Ensure Searcher implements the interface.
var _ driving.SearchService = (*Searcher)(nil)

// Default retrieval settings.
const (
	// DefaultTopK is the result count when the request does not set one.
	DefaultTopK = 10

	// DefaultMaxTopK caps requested result counts.
	DefaultMaxTopK = 1000

	// DefaultLexicalWeight is the BM25 share of a hybrid score.
	DefaultLexicalWeight = 0.3

	// DefaultSearchTimeout bounds the embedding and index calls behind
	// a single query. Queries are interactive, so this stays well under
	// the ingestion step timeout.
	DefaultSearchTimeout = 10 * time.Second

	// maxExcerptRunes truncates chunk text for display.
	maxExcerptRunes = 300
)

// SearcherConfig holds retrieval tuning knobs.
type SearcherConfig struct {
	// TopK is the default result count. Zero uses the default.
	TopK int

	// MaxTopK caps requested result counts. Zero uses the default.
	MaxTopK int

	// LexicalWeight is the BM25 share of a hybrid score, in [0,1].
	// Zero uses the default.
	LexicalWeight float64

	// Timeout caps the provider calls behind one query. Zero uses the
	// default.
	Timeout time.Duration
}

// chunkKey identifies a chunk across the two retrieval legs.
type chunkKey struct {
	documentID string
	chunkIndex int
}

// scoredHit is an intermediate result before hydration.
type scoredHit struct {
	key   chunkKey
	score float64
}

// Searcher provides tenant-scoped retrieval: vector similarity with an
// optional lexical BM25 blend. Provider failures after retries come
// back as a flagged response, never as a silent empty result set.
type Searcher struct {
	docStore driven.DocumentStore
	lexical  driven.LexicalIndex
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
	queries  *cache.Cache

	topK          int
	maxTopK       int
	lexicalWeight float64
	timeout       time.Duration
}

// NewSearcher creates the retrieval service. The query cache is
// optional; nil embeds every query through the provider.
func NewSearcher(
	docStore driven.DocumentStore,
	lexical driven.LexicalIndex,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	queries *cache.Cache,
	cfg SearcherConfig,
) *Searcher {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	if cfg.LexicalWeight <= 0 {
		cfg.LexicalWeight = DefaultLexicalWeight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSearchTimeout
	}
	return &Searcher{
		docStore:      docStore,
		lexical:       lexical,
		vectors:       vectors,
		embedder:      embedder,
		queries:       queries,
		topK:          cfg.TopK,
		maxTopK:       cfg.MaxTopK,
		lexicalWeight: cfg.LexicalWeight,
		timeout:       cfg.Timeout,
	}
}

// Search runs a query within the tenant.
func (s *Searcher) Search(ctx context.Context, tc domain.TenantContext, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	if err := tc.Require(domain.CapabilitySearch); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < domain.MinQueryLength {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(query); n > domain.MaxQueryLength {
		return nil, fmt.Errorf("%w: query length %d exceeds %d", domain.ErrInvalidInput, n, domain.MaxQueryLength)
	}

	topK := s.clampTopK(opts.TopK)
	// Fetch extra candidates per leg so blending and threshold
	// filtering still fill topK.
	fetchK := topK * 2

	logger.Section("Search Execution")
	logger.Debug("Tenant %s query %q topK=%d hybrid=%t", tc.Tenant(), query, topK, opts.Hybrid)

	var (
		vectorScores  map[chunkKey]float64
		lexicalScores map[chunkKey]float64
		vectorErr     error
		lexicalErr    error
	)

	// Queries are interactive: bound the provider calls so a stalled
	// embedding or index backend cannot hold the request open.
	legCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if opts.Hybrid {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			vectorScores, vectorErr = s.vectorLeg(legCtx, tc.Tenant(), query, fetchK)
		}()
		go func() {
			defer wg.Done()
			lexicalScores, lexicalErr = s.lexicalLeg(legCtx, tc.Tenant(), query, fetchK)
		}()
		wg.Wait()
	} else {
		vectorScores, vectorErr = s.vectorLeg(legCtx, tc.Tenant(), query, fetchK)
	}

	degraded := false
	var scored []scoredHit

	switch {
	case opts.Hybrid && vectorErr == nil && lexicalErr == nil:
		scored = blendScores(vectorScores, lexicalScores, s.lexicalWeight)
	case opts.Hybrid && vectorErr == nil:
		logger.Warn("Hybrid search: lexical leg failed, vector results only: %v", lexicalErr)
		scored = plainScores(vectorScores)
		degraded = true
	case opts.Hybrid && lexicalErr == nil:
		logger.Warn("Hybrid search: vector leg failed, lexical results only: %v", vectorErr)
		scored = plainScores(normaliseLexical(lexicalScores))
		degraded = true
	case !opts.Hybrid && vectorErr == nil:
		scored = plainScores(vectorScores)
	default:
		reason := retrievalFailure(vectorErr, lexicalErr)
		logger.Warn("Search failed for tenant %s: %s", tc.Tenant(), reason)
		return &domain.SearchResponse{
			Results:       []domain.SearchResult{},
			Failed:        true,
			FailureReason: reason,
		}, nil
	}

	if opts.ScoreThreshold > 0 {
		kept := scored[:0]
		for _, h := range scored {
			if h.score >= opts.ScoreThreshold {
				kept = append(kept, h)
			}
		}
		scored = kept
	}

	// Deterministic ordering: score descending, then document, then
	// chunk index, so equal-score results never shuffle between calls.
	sort.Slice(scored, func(a, b int) bool {
		if scored[a].score != scored[b].score {
			return scored[a].score > scored[b].score
		}
		if scored[a].key.documentID != scored[b].key.documentID {
			return scored[a].key.documentID < scored[b].key.documentID
		}
		return scored[a].key.chunkIndex < scored[b].key.chunkIndex
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	results, err := s.hydrate(ctx, tc.Tenant(), scored)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	logger.Debug("Search returned %d results (degraded=%t)", len(results), degraded)
	return &domain.SearchResponse{Results: results, Degraded: degraded}, nil
}

// clampTopK resolves the requested result count against the
// configured default and ceiling.
func (s *Searcher) clampTopK(requested int) int {
	if requested <= 0 {
		return s.topK
	}
	if requested > s.maxTopK {
		return s.maxTopK
	}
	return requested
}

// vectorLeg embeds the query and searches the vector index, restricted
// to the tenant and the current embedding model version.
func (s *Searcher) vectorLeg(ctx context.Context, tenant domain.TenantID, query string, fetchK int) (map[chunkKey]float64, error) {
	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vectors.Search(ctx, driven.VectorQuery{
		Tenant:       tenant,
		Vector:       vector,
		ModelVersion: s.embedder.ModelVersion(),
		TopK:         fetchK,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	scores := make(map[chunkKey]float64, len(hits))
	for _, h := range hits {
		scores[chunkKey{documentID: h.DocumentID, chunkIndex: h.ChunkIndex}] = h.Score
	}
	return scores, nil
}

// embedQuery embeds through the bounded TTL cache; repeated queries
// skip the provider call. The key carries the model version so a model
// migration naturally invalidates prior entries.
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := s.embedder.ModelVersion() + "\x00" + query
	if s.queries != nil {
		if vector, ok := s.queries.Get(key); ok {
			return vector, nil
		}
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.queries != nil {
		s.queries.Put(key, vector)
	}
	return vector, nil
}

// lexicalLeg runs the keyword search within the tenant.
func (s *Searcher) lexicalLeg(ctx context.Context, tenant domain.TenantID, query string, fetchK int) (map[chunkKey]float64, error) {
	hits, err := s.lexical.Search(ctx, tenant, query, fetchK)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	scores := make(map[chunkKey]float64, len(hits))
	for _, h := range hits {
		scores[chunkKey{documentID: h.DocumentID, chunkIndex: h.ChunkIndex}] = h.Score
	}
	return scores, nil
}

// blendScores merges the two legs. The final score is
// (1-w)*similarity + w*(bm25/bm25max); a chunk absent from one leg
// contributes zero for that leg.
func blendScores(vector, lexical map[chunkKey]float64, weight float64) []scoredHit {
	lexical = normaliseLexical(lexical)
	keys := make(map[chunkKey]struct{}, len(vector)+len(lexical))
	for k := range vector {
		keys[k] = struct{}{}
	}
	for k := range lexical {
		keys[k] = struct{}{}
	}
	hits := make([]scoredHit, 0, len(keys))
	for k := range keys {
		hits = append(hits, scoredHit{
			key:   k,
			score: (1-weight)*vector[k] + weight*lexical[k],
		})
	}
	return hits
}

// normaliseLexical scales BM25 scores into [0,1] by the best hit.
func normaliseLexical(scores map[chunkKey]float64) map[chunkKey]float64 {
	var best float64
	for _, v := range scores {
		if v > best {
			best = v
		}
	}
	if best <= 0 {
		return map[chunkKey]float64{}
	}
	out := make(map[chunkKey]float64, len(scores))
	for k, v := range scores {
		out[k] = v / best
	}
	return out
}

// plainScores converts a single leg's score map to hits unchanged.
func plainScores(scores map[chunkKey]float64) []scoredHit {
	hits := make([]scoredHit, 0, len(scores))
	for k, v := range scores {
		hits = append(hits, scoredHit{key: k, score: v})
	}
	return hits
}

// retrievalFailure builds the human-readable reason for a failed
// response.
func retrievalFailure(vectorErr, lexicalErr error) string {
	switch {
	case vectorErr != nil && lexicalErr != nil:
		return fmt.Sprintf("vector: %v; lexical: %v", vectorErr, lexicalErr)
	case vectorErr != nil:
		return vectorErr.Error()
	case lexicalErr != nil:
		return lexicalErr.Error()
	}
	return "retrieval failed"
}

// hydrate resolves scored chunk references against the document store.
// Rows whose chunk or document vanished since indexing are skipped.
func (s *Searcher) hydrate(ctx context.Context, tenant domain.TenantID, scored []scoredHit) ([]domain.SearchResult, error) {
	results := make([]domain.SearchResult, 0, len(scored))
	names := make(map[string]string, len(scored))

	for _, h := range scored {
		name, seen := names[h.key.documentID]
		if !seen {
			doc, err := s.docStore.GetDocument(ctx, tenant, h.key.documentID)
			if errors.Is(err, domain.ErrNotFound) {
				names[h.key.documentID] = ""
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get document %s: %w", h.key.documentID, err)
			}
			name = doc.Filename
			names[h.key.documentID] = name
		}
		if name == "" {
			continue
		}
		chunk, err := s.docStore.GetChunk(ctx, tenant, h.key.documentID, h.key.chunkIndex)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get chunk %s#%d: %w", h.key.documentID, h.key.chunkIndex, err)
		}
		results = append(results, domain.SearchResult{
			DocumentID:   h.key.documentID,
			DocumentName: name,
			ChunkIndex:   h.key.chunkIndex,
			PageNumber:   chunk.PageNumber,
			Score:        h.score,
			Excerpt:      truncateExcerpt(chunk.Text),
		})
	}
	return results, nil
}

// truncateExcerpt caps chunk text for display at a rune boundary.
func truncateExcerpt(text string) string {
	if utf8.RuneCountInString(text) <= maxExcerptRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxExcerptRunes]) + "..."
}
