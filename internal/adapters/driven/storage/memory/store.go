// Package memory provides in-memory implementations of the storage
// ports for tests and ephemeral deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Store holds documents, chunks and ingestion statuses in process
// memory. Deleting a document removes its chunks and status, matching
// the SQLite adapter's cascade behaviour.
type Store struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	statuses  map[string]domain.IngestionStatus
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		statuses:  make(map[string]domain.IngestionStatus),
	}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// StatusStore returns a StatusStore interface backed by this store.
func (s *Store) StatusStore() driven.StatusStore {
	return &statusStore{store: s}
}

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID within a tenant.
func (s *documentStore) GetDocument(_ context.Context, tenant domain.TenantID, id string) (*domain.Document, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	doc, ok := s.store.documents[id]
	if !ok || doc.TenantID != tenant {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindByChecksum looks up a tenant's document by content checksum.
func (s *documentStore) FindByChecksum(_ context.Context, tenant domain.TenantID, checksum string) (*domain.Document, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	for id := range s.store.documents {
		doc := s.store.documents[id]
		if doc.TenantID == tenant && doc.Checksum == checksum {
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns all documents for a tenant, newest first.
func (s *documentStore) ListDocuments(_ context.Context, tenant domain.TenantID) ([]domain.Document, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	var result []domain.Document
	for id := range s.store.documents {
		doc := s.store.documents[id]
		if doc.TenantID == tenant {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UploadedAt.Equal(result[j].UploadedAt) {
			return result[i].UploadedAt.After(result[j].UploadedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteDocument removes a document, its chunks and its status row.
func (s *documentStore) DeleteDocument(_ context.Context, tenant domain.TenantID, id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	doc, ok := s.store.documents[id]
	if !ok || doc.TenantID != tenant {
		return domain.ErrNotFound
	}
	delete(s.store.documents, id)
	delete(s.store.chunks, id)
	delete(s.store.statuses, id)
	return nil
}

// ReplaceChunks atomically swaps a document's chunks.
func (s *documentStore) ReplaceChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.chunks[doc.ID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// GetChunks retrieves all chunks for a document, ordered by index.
func (s *documentStore) GetChunks(_ context.Context, tenant domain.TenantID, documentID string) ([]domain.Chunk, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	doc, ok := s.store.documents[documentID]
	if !ok || doc.TenantID != tenant {
		return nil, nil
	}
	chunks := append([]domain.Chunk(nil), s.store.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// GetChunk retrieves a single chunk by document and index.
func (s *documentStore) GetChunk(_ context.Context, tenant domain.TenantID, documentID string, index int) (*domain.Chunk, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	doc, ok := s.store.documents[documentID]
	if !ok || doc.TenantID != tenant {
		return nil, domain.ErrNotFound
	}
	for _, chunk := range s.store.chunks[documentID] {
		if chunk.Index == index {
			return &chunk, nil
		}
	}
	return nil, domain.ErrNotFound
}

// statusStore implements driven.StatusStore.
type statusStore struct {
	store *Store
}

var _ driven.StatusStore = (*statusStore)(nil)

// Save stores or updates an ingestion status.
func (s *statusStore) Save(_ context.Context, status *domain.IngestionStatus) error {
	if status.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.statuses[status.DocumentID] = *status
	return nil
}

// Get retrieves the status for a document.
func (s *statusStore) Get(_ context.Context, documentID string) (*domain.IngestionStatus, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	status, ok := s.store.statuses[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &status, nil
}

// Delete removes the status for a document.
func (s *statusStore) Delete(_ context.Context, documentID string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	delete(s.store.statuses, documentID)
	return nil
}
