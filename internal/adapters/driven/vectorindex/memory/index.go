// Package memory provides an in-memory vector index for tests and
// single-process deployments without a Qdrant instance.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// pointKey is the identity of one entry within a tenant partition.
type pointKey struct {
	documentID string
	chunkIndex int
}

// Index stores vectors in per-tenant partitions. A search never
// touches any partition but its own.
type Index struct {
	mu      sync.RWMutex
	tenants map[domain.TenantID]map[pointKey]driven.IndexEntry
}

// NewIndex creates an empty in-memory vector index.
func NewIndex() *Index {
	return &Index{
		tenants: make(map[domain.TenantID]map[pointKey]driven.IndexEntry),
	}
}

// Upsert inserts or replaces entries.
func (x *Index) Upsert(_ context.Context, entries []driven.IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, e := range entries {
		if err := validTenant(e.Tenant); err != nil {
			return err
		}
		if e.DocumentID == "" || len(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %d missing document id or vector", domain.ErrInvalidInput, i)
		}

		partition, ok := x.tenants[e.Tenant]
		if !ok {
			partition = make(map[pointKey]driven.IndexEntry)
			x.tenants[e.Tenant] = partition
		}

		e.Vector = append([]float32(nil), e.Vector...)
		partition[pointKey{documentID: e.DocumentID, chunkIndex: e.ChunkIndex}] = e
	}

	return nil
}

// DeleteDocument removes all entries for a document.
func (x *Index) DeleteDocument(_ context.Context, tenant domain.TenantID, documentID string) error {
	if err := validTenant(tenant); err != nil {
		return err
	}
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	partition := x.tenants[tenant]
	for key := range partition {
		if key.documentID == documentID {
			delete(partition, key)
		}
	}
	return nil
}

// DeleteTenant removes every entry for a tenant.
func (x *Index) DeleteTenant(_ context.Context, tenant domain.TenantID) error {
	if err := validTenant(tenant); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	delete(x.tenants, tenant)
	return nil
}

// Search finds the nearest entries within the query's tenant by cosine
// similarity.
func (x *Index) Search(_ context.Context, query driven.VectorQuery) ([]driven.VectorHit, error) {
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

	x.mu.RLock()
	defer x.mu.RUnlock()

	partition := x.tenants[query.Tenant]

	hits := make([]driven.VectorHit, 0, len(partition))
	for key, e := range partition {
		if query.ModelVersion != "" && e.ModelVersion != query.ModelVersion {
			continue
		}

		score := cosineSimilarity(query.Vector, e.Vector)
		if math.IsNaN(score) {
			continue
		}

		hits = append(hits, driven.VectorHit{
			DocumentID: key.documentID,
			ChunkIndex: key.chunkIndex,
			Score:      score,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocumentID != hits[j].DocumentID {
			return hits[i].DocumentID < hits[j].DocumentID
		}
		return hits[i].ChunkIndex < hits[j].ChunkIndex
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	return hits, nil
}

// Ping validates the index is reachable.
func (x *Index) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// validTenant re-validates a tenant identifier at the index boundary.
func validTenant(tenant domain.TenantID) error {
	if _, err := domain.ParseTenantID(tenant.String()); err != nil {
		return fmt.Errorf("%w: tenant %q", domain.ErrIsolationViolation, tenant.String())
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
