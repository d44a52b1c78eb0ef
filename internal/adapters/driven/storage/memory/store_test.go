package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

func testDocument(tenant domain.TenantID, id string, uploaded time.Time) *domain.Document {
	return &domain.Document{
		ID:         id,
		TenantID:   tenant,
		Filename:   id + ".txt",
		MIMEType:   "text/plain",
		ByteSize:   64,
		Checksum:   "blake3:" + id,
		UploadedAt: uploaded,
	}
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	doc := testDocument("acme", "doc-1", time.Now().UTC())
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))

	got, err := store.DocumentStore().GetDocument(ctx, "acme", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Checksum, got.Checksum)
}

func TestDocumentStore_Get_TenantIsolation(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.DocumentStore().SaveDocument(ctx, testDocument("acme", "doc-1", time.Now())))

	got, err := store.DocumentStore().GetDocument(ctx, "globex", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, got)
}

func TestDocumentStore_SaveDocument_EmptyID(t *testing.T) {
	store := NewStore()
	err := store.DocumentStore().SaveDocument(context.Background(), &domain.Document{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_FindByChecksum(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	doc := testDocument("acme", "doc-1", time.Now())
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))

	got, err := store.DocumentStore().FindByChecksum(ctx, "acme", doc.Checksum)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)

	_, err = store.DocumentStore().FindByChecksum(ctx, "acme", "blake3:other")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.DocumentStore().FindByChecksum(ctx, "globex", doc.Checksum)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDocuments_NewestFirst(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.DocumentStore().SaveDocument(ctx, testDocument("acme", "doc-old", base)))
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, testDocument("acme", "doc-new", base.Add(time.Hour))))
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, testDocument("globex", "doc-other", base)))

	list, err := store.DocumentStore().ListDocuments(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "doc-new", list[0].ID)
	assert.Equal(t, "doc-old", list[1].ID)
}

func TestDocumentStore_ReplaceChunks(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	doc := testDocument("acme", "doc-1", time.Now())
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))

	first := []domain.Chunk{
		{DocumentID: "doc-1", Index: 0, Text: "old"},
		{DocumentID: "doc-1", Index: 1, Text: "rows"},
	}
	require.NoError(t, store.DocumentStore().ReplaceChunks(ctx, doc, first))

	second := []domain.Chunk{{DocumentID: "doc-1", Index: 0, Text: "new"}}
	require.NoError(t, store.DocumentStore().ReplaceChunks(ctx, doc, second))

	got, err := store.DocumentStore().GetChunks(ctx, "acme", "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Text)
}

func TestDocumentStore_GetChunk(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	doc := testDocument("acme", "doc-1", time.Now())
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))
	require.NoError(t, store.DocumentStore().ReplaceChunks(ctx, doc, []domain.Chunk{
		{DocumentID: "doc-1", Index: 0, Text: "alpha"},
		{DocumentID: "doc-1", Index: 1, Text: "beta"},
	}))

	got, err := store.DocumentStore().GetChunk(ctx, "acme", "doc-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Text)

	_, err = store.DocumentStore().GetChunk(ctx, "acme", "doc-1", 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.DocumentStore().GetChunk(ctx, "globex", "doc-1", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteDocument(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	doc := testDocument("acme", "doc-1", time.Now())
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))
	require.NoError(t, store.DocumentStore().ReplaceChunks(ctx, doc, []domain.Chunk{
		{DocumentID: "doc-1", Index: 0, Text: "alpha"},
	}))
	require.NoError(t, store.StatusStore().Save(ctx, domain.NewIngestionStatus("doc-1")))

	require.NoError(t, store.DocumentStore().DeleteDocument(ctx, "acme", "doc-1"))

	_, err := store.DocumentStore().GetDocument(ctx, "acme", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.DocumentStore().GetChunks(ctx, "acme", "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = store.StatusStore().Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteDocument_WrongTenant(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.DocumentStore().SaveDocument(ctx, testDocument("acme", "doc-1", time.Now())))

	err := store.DocumentStore().DeleteDocument(ctx, "globex", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.DocumentStore().GetDocument(ctx, "acme", "doc-1")
	assert.NoError(t, err)
}

func TestStatusStore_SaveGetDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	status := domain.NewIngestionStatus("doc-1")
	require.NoError(t, store.StatusStore().Save(ctx, status))

	got, err := store.StatusStore().Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionPending, got.State)

	require.NoError(t, status.Advance(domain.IngestionChunking))
	require.NoError(t, store.StatusStore().Save(ctx, status))

	got, err = store.StatusStore().Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionChunking, got.State)

	require.NoError(t, store.StatusStore().Delete(ctx, "doc-1"))
	_, err = store.StatusStore().Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatusStore_Save_EmptyID(t *testing.T) {
	store := NewStore()
	err := store.StatusStore().Save(context.Background(), &domain.IngestionStatus{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStatusStore_GetReturnsCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.StatusStore().Save(ctx, domain.NewIngestionStatus("doc-1")))

	got, err := store.StatusStore().Get(ctx, "doc-1")
	require.NoError(t, err)
	require.NoError(t, got.Advance(domain.IngestionChunking))

	// Mutating the returned value must not change the stored one
	stored, err := store.StatusStore().Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionPending, stored.State)
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	done := make(chan bool)

	for i := 0; i < 4; i++ {
		go func(n int) {
			for j := 0; j < 50; j++ {
				doc := testDocument("acme", "doc-1", time.Now())
				_ = store.DocumentStore().SaveDocument(ctx, doc)
				_, _ = store.DocumentStore().GetDocument(ctx, "acme", "doc-1")
				_, _ = store.DocumentStore().ListDocuments(ctx, "acme")
			}
			done <- true
		}(i)
	}

	for i := 0; i < 4; i++ {
		<-done
	}
}
