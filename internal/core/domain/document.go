package domain

import (
	"fmt"
	"time"
)

// Document represents an uploaded evidence file with metadata.
// Documents are immutable once stored; uploading changed content
// (a new checksum) creates a new Document, while re-uploading
// identical content re-processes the existing one.
type Document struct {
	// ID is the unique identifier for the document (UUID).
	ID string

	// TenantID is the owning tenant. Every derived chunk and index
	// entry carries the same tenant.
	TenantID TenantID

	// Filename is the sanitised original filename, kept for display.
	// It never participates in storage keys.
	Filename string

	// MIMEType is the effective content type, sniffed from the bytes.
	MIMEType string

	// ByteSize is the size of the original upload.
	ByteSize int64

	// Checksum is the content digest ("blake3:<hex>"). Uploads with a
	// checksum already known to the tenant re-process that document.
	Checksum string

	// UploadedBy is the acting principal from the tenant context.
	UploadedBy string

	// UploadedAt is when the document was accepted.
	UploadedAt time.Time

	// StorageRef locates the original bytes in the object store.
	StorageRef string
}

// Chunk represents a citable unit within a document. Chunks are
// derived deterministically from document text and are regenerated
// wholesale on re-ingestion, never patched in place.
type Chunk struct {
	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the ordinal position within the document. Together
	// with DocumentID it identifies the chunk.
	Index int

	// PageNumber is the 1-based source page, when the extractor
	// reported page boundaries. Nil means pagination is unknown.
	PageNumber *int

	// Text is the chunk content.
	Text string

	// CharStart is the rune offset of the chunk start in the
	// extracted document text.
	CharStart int

	// CharEnd is the rune offset one past the chunk end.
	CharEnd int

	// Embedding is the vector representation, populated during the
	// embedding stage.
	Embedding []float32

	// ModelVersion identifies the embedding model that produced the
	// vector. Vectors from different versions never mix in search.
	ModelVersion string
}

// Ref returns the composite chunk identifier used in results and
// citations.
func (c Chunk) Ref() string {
	return fmt.Sprintf("%s#%d", c.DocumentID, c.Index)
}
