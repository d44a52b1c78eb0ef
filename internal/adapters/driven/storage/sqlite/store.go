package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/evidentia-labs/evidentia/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// the metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.evidentia/data/evidentia.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".evidentia", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "evidentia.db")

	// Open database with WAL mode for better concurrency. Foreign keys
	// go in the DSN so every pooled connection enforces them.
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// StatusStore returns a StatusStore interface backed by this store.
func (s *Store) StatusStore() driven.StatusStore {
	return &statusStore{store: s}
}

// LexicalIndex returns a LexicalIndex interface backed by the FTS5
// table maintained alongside chunk rows.
func (s *Store) LexicalIndex() driven.LexicalIndex {
	return &lexicalIndex{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document. The tenant is fixed at
// insert time and never changed by a conflicting upsert.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return domain.ErrInvalidInput
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, tenant_id, filename, mime_type, byte_size, checksum, uploaded_by, uploaded_at, storage_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			mime_type = excluded.mime_type,
			byte_size = excluded.byte_size,
			checksum = excluded.checksum,
			uploaded_by = excluded.uploaded_by,
			uploaded_at = excluded.uploaded_at,
			storage_ref = excluded.storage_ref
	`, doc.ID, string(doc.TenantID), doc.Filename, doc.MIMEType, doc.ByteSize,
		doc.Checksum, doc.UploadedBy, doc.UploadedAt, doc.StorageRef)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID within a tenant.
func (s *documentStore) GetDocument(ctx context.Context, tenant domain.TenantID, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, filename, mime_type, byte_size, checksum, uploaded_by, uploaded_at, storage_ref
		FROM documents WHERE id = ? AND tenant_id = ?
	`, id, string(tenant))

	return scanDocument(row)
}

// FindByChecksum looks up a tenant's document by content checksum.
func (s *documentStore) FindByChecksum(ctx context.Context, tenant domain.TenantID, checksum string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, filename, mime_type, byte_size, checksum, uploaded_by, uploaded_at, storage_ref
		FROM documents WHERE tenant_id = ? AND checksum = ?
	`, string(tenant), checksum)

	return scanDocument(row)
}

// ListDocuments returns all documents for a tenant, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, tenant domain.TenantID) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, filename, mime_type, byte_size, checksum, uploaded_by, uploaded_at, storage_ref
		FROM documents WHERE tenant_id = ?
		ORDER BY uploaded_at DESC, id
	`, string(tenant))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document, its chunks and its status row.
// Chunk and status rows cascade; full-text rows are cleared explicitly.
func (s *documentStore) DeleteDocument(ctx context.Context, tenant domain.TenantID, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE id = ? AND tenant_id = ?",
		id, string(tenant)).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	if count == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting search rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ReplaceChunks atomically swaps a document's chunks. Prior chunk and
// full-text rows are deleted and the new set inserted in one
// transaction, so readers never observe a half-replaced document.
func (s *documentStore) ReplaceChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("clearing search rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, chunk_index, page_number, content, char_start, char_end, embedding, model_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk statement: %w", err)
	}
	defer stmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks_fts (content, tenant_id, document_id, chunk_index)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing search statement: %w", err)
	}
	defer ftsStmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.DocumentID, chunk.Index, nullInt(chunk.PageNumber),
			chunk.Text, chunk.CharStart, chunk.CharEnd, embeddingBlob, chunk.ModelVersion); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}

		if _, err := ftsStmt.ExecContext(ctx, chunk.Text, string(doc.TenantID),
			chunk.DocumentID, chunk.Index); err != nil {
			return fmt.Errorf("indexing chunk text: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves all chunks for a document, ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, tenant domain.TenantID, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.document_id, c.chunk_index, c.page_number, c.content, c.char_start, c.char_end, c.embedding, c.model_version
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.document_id = ? AND d.tenant_id = ?
		ORDER BY c.chunk_index
	`, documentID, string(tenant))
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// GetChunk retrieves a single chunk by document and index.
func (s *documentStore) GetChunk(ctx context.Context, tenant domain.TenantID, documentID string, index int) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT c.document_id, c.chunk_index, c.page_number, c.content, c.char_start, c.char_end, c.embedding, c.model_version
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.document_id = ? AND c.chunk_index = ? AND d.tenant_id = ?
	`, documentID, index, string(tenant))

	return scanChunkRow(row)
}

// ==================== Status Store ====================

// statusStore implements driven.StatusStore.
type statusStore struct {
	store *Store
}

var _ driven.StatusStore = (*statusStore)(nil)

// Save stores or updates an ingestion status.
func (s *statusStore) Save(ctx context.Context, status *domain.IngestionStatus) error {
	if status.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingestion_status (document_id, state, chunks_created, error_message, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			state = excluded.state,
			chunks_created = excluded.chunks_created,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`, status.DocumentID, string(status.State), status.ChunksCreated,
		status.ErrorMessage, status.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving ingestion status: %w", err)
	}
	return nil
}

// Get retrieves the status for a document.
func (s *statusStore) Get(ctx context.Context, documentID string) (*domain.IngestionStatus, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, state, chunks_created, error_message, updated_at
		FROM ingestion_status WHERE document_id = ?
	`, documentID)

	var status domain.IngestionStatus
	var state string
	var updatedAt sql.NullTime
	if err := row.Scan(&status.DocumentID, &state, &status.ChunksCreated,
		&status.ErrorMessage, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning ingestion status: %w", err)
	}

	status.State = domain.IngestionState(state)
	if updatedAt.Valid {
		status.UpdatedAt = updatedAt.Time
	}

	return &status, nil
}

// Delete removes the status for a document.
func (s *statusStore) Delete(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM ingestion_status WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting ingestion status: %w", err)
	}
	return nil
}

// ==================== Lexical Index ====================

// lexicalIndex implements driven.LexicalIndex over the chunks_fts table.
type lexicalIndex struct {
	store *Store
}

var _ driven.LexicalIndex = (*lexicalIndex)(nil)

// Search performs a BM25 keyword search within a tenant. Scores are
// negated so that higher means a better match.
func (s *lexicalIndex) Search(ctx context.Context, tenant domain.TenantID, query string, limit int) ([]driven.LexicalHit, error) {
	match := sanitiseMatch(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, chunk_index, -bm25(chunks_fts) AS score
		FROM chunks_fts
		WHERE chunks_fts MATCH ? AND tenant_id = ?
		ORDER BY score DESC
		LIMIT ?
	`, match, string(tenant), limit)
	if err != nil {
		return nil, fmt.Errorf("querying full-text index: %w", err)
	}
	defer rows.Close()

	var hits []driven.LexicalHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.LexicalHit
		if err := rows.Scan(&hit.DocumentID, &hit.ChunkIndex, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}

	return hits, nil
}

// sanitiseMatch rewrites a raw user query as a safe FTS5 MATCH
// expression. Each term is double-quoted so operators and punctuation
// in the input cannot change the query structure; terms are joined
// with OR for recall, BM25 ranks multi-term matches higher anyway.
func sanitiseMatch(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + term + `"`
	}
	return strings.Join(quoted, " OR ")
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// nullInt converts an optional int to a driver value.
func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var tenant string
	var uploadedAt sql.NullTime

	if err := row.Scan(&doc.ID, &tenant, &doc.Filename, &doc.MIMEType, &doc.ByteSize,
		&doc.Checksum, &doc.UploadedBy, &uploadedAt, &doc.StorageRef); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.TenantID = domain.TenantID(tenant)
	if uploadedAt.Valid {
		doc.UploadedAt = uploadedAt.Time
	}

	return &doc, nil
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var tenant string
	var uploadedAt sql.NullTime

	if err := rows.Scan(&doc.ID, &tenant, &doc.Filename, &doc.MIMEType, &doc.ByteSize,
		&doc.Checksum, &doc.UploadedBy, &uploadedAt, &doc.StorageRef); err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.TenantID = domain.TenantID(tenant)
	if uploadedAt.Valid {
		doc.UploadedAt = uploadedAt.Time
	}

	return &doc, nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var pageNumber sql.NullInt64
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.DocumentID, &chunk.Index, &pageNumber, &chunk.Text,
		&chunk.CharStart, &chunk.CharEnd, &embeddingBlob, &chunk.ModelVersion); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	if pageNumber.Valid {
		page := int(pageNumber.Int64)
		chunk.PageNumber = &page
	}
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	return &chunk, nil
}

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var pageNumber sql.NullInt64
	var embeddingBlob []byte

	if err := row.Scan(&chunk.DocumentID, &chunk.Index, &pageNumber, &chunk.Text,
		&chunk.CharStart, &chunk.CharEnd, &embeddingBlob, &chunk.ModelVersion); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	if pageNumber.Valid {
		page := int(pageNumber.Int64)
		chunk.PageNumber = &page
	}
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	return &chunk, nil
}
