package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
	"github.com/evidentia-labs/evidentia/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestionService = (*Ingestor)(nil)

// Default ingestion pipeline settings.
const (
	// DefaultQueueSize bounds accepted-but-unprocessed documents.
	DefaultQueueSize = 256

	// DefaultWorkers is the pipeline worker pool size.
	DefaultWorkers = 4

	// DefaultStepTimeout bounds each pipeline stage. Deliberately
	// generous; embedding a large document takes time.
	DefaultStepTimeout = 120 * time.Second
)

// refinableTypes are text formats a client may declare when the bytes
// sniff as plain text. Binary container formats are absent: a genuine
// PDF or DOCX never sniffs as text, so declaring one over text bytes
// is a mislabel, not a refinement.
var refinableTypes = map[string]bool{
	"text/markdown":    true,
	"text/html":        true,
	"text/csv":         true,
	"application/json": true,
	"message/rfc822":   true,
}

// IngestorConfig holds pipeline tuning knobs.
type IngestorConfig struct {
	// QueueSize bounds the ingestion queue. Zero uses the default.
	QueueSize int

	// Workers is the worker pool size. Zero uses the default.
	Workers int

	// StepTimeout bounds each pipeline stage. Zero uses the default.
	StepTimeout time.Duration

	// Policy holds upload limits. The zero value uses the default policy.
	Policy domain.UploadPolicy
}

// ingestJob identifies one queued pipeline run.
type ingestJob struct {
	tenant     domain.TenantID
	documentID string
}

// Ingestor accepts uploads and runs the ingestion pipeline: extract,
// chunk, embed, index. Submission is synchronous and ends with a
// pending status; a bounded worker pool drains the queue in the
// background.
type Ingestor struct {
	docStore    driven.DocumentStore
	statusStore driven.StatusStore
	objects     driven.ObjectStore
	registry    driven.NormaliserRegistry
	chunker     driven.Chunker
	embedder    driven.EmbeddingService
	vectors     driven.VectorIndex

	queueSize   int
	workers     int
	stepTimeout time.Duration
	policy      domain.UploadPolicy

	jobs chan ingestJob

	// mu guards the active set and the lifecycle fields. The active
	// set holds documents that are queued or mid-pipeline, so one
	// document can never run twice concurrently.
	mu      sync.Mutex
	active  map[string]struct{}
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewIngestor creates the ingestion service.
func NewIngestor(
	docStore driven.DocumentStore,
	statusStore driven.StatusStore,
	objects driven.ObjectStore,
	registry driven.NormaliserRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	cfg IngestorConfig,
) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	if cfg.Policy.MaxBytes == nil {
		cfg.Policy = domain.DefaultUploadPolicy()
	}
	return &Ingestor{
		docStore:    docStore,
		statusStore: statusStore,
		objects:     objects,
		registry:    registry,
		chunker:     chunker,
		embedder:    embedder,
		vectors:     vectors,
		queueSize:   cfg.QueueSize,
		workers:     cfg.Workers,
		stepTimeout: cfg.StepTimeout,
		policy:      cfg.Policy,
		jobs:        make(chan ingestJob, cfg.QueueSize),
		active:      make(map[string]struct{}),
	}
}

// Start launches the worker pool and returns immediately. Workers run
// until Stop is called or the context is cancelled.
func (i *Ingestor) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil
	}
	i.running = true
	i.stopCh = make(chan struct{})
	stopCh := i.stopCh
	i.mu.Unlock()

	for n := 0; n < i.workers; n++ {
		i.wg.Add(1)
		go i.worker(ctx, stopCh)
	}
	logger.Info("Ingestion pipeline started: %d workers, queue depth %d", i.workers, i.queueSize)
	return nil
}

// Stop shuts the worker pool down, waiting for in-flight documents to
// finish. Documents still queued stay pending; Reindex re-queues them.
func (i *Ingestor) Stop() error {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return nil
	}
	i.running = false
	close(i.stopCh)
	i.mu.Unlock()

	i.wg.Wait()
	return nil
}

// Submit validates an upload, stores it and queues ingestion.
func (i *Ingestor) Submit(ctx context.Context, tc domain.TenantContext, upload domain.Upload) (*domain.Document, error) {
	if err := tc.Require(domain.CapabilityIngest); err != nil {
		return nil, err
	}

	filename, err := domain.SanitiseFilename(upload.Filename)
	if err != nil {
		return nil, err
	}
	mimeType := effectiveMIMEType(upload.DeclaredMIME, upload.Content)
	if err := i.policy.Validate(mimeType, int64(len(upload.Content))); err != nil {
		return nil, err
	}
	if _, err := i.registry.ForMIMEType(mimeType); err != nil {
		return nil, err
	}

	tenant := tc.Tenant()
	checksum := contentChecksum(upload.Content)

	existing, err := i.docStore.FindByChecksum(ctx, tenant, checksum)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up checksum: %w", err)
	}
	if existing != nil {
		return i.resubmit(ctx, existing)
	}

	doc := &domain.Document{
		ID:         uuid.NewString(),
		TenantID:   tenant,
		Filename:   filename,
		MIMEType:   mimeType,
		ByteSize:   int64(len(upload.Content)),
		Checksum:   checksum,
		UploadedBy: tc.Actor(),
		UploadedAt: time.Now().UTC(),
	}

	// The storage key is built from validated identifiers only; the
	// client filename never reaches the object store.
	ref, err := i.objects.Put(ctx, tenant.String()+"/"+doc.ID, upload.Content, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	doc.StorageRef = ref

	if err := i.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := i.statusStore.Save(ctx, domain.NewIngestionStatus(doc.ID)); err != nil {
		return nil, fmt.Errorf("save status: %w", err)
	}

	if err := i.enqueue(tenant, doc.ID); err != nil {
		// Roll the acceptance back so a rejected upload leaves
		// nothing behind.
		if derr := i.docStore.DeleteDocument(ctx, tenant, doc.ID); derr != nil {
			logger.Warn("Roll back document %s: %v", doc.ID, derr)
		}
		if derr := i.objects.Delete(ctx, ref); derr != nil {
			logger.Warn("Roll back stored bytes for %s: %v", doc.ID, derr)
		}
		return nil, err
	}

	logger.Info("Accepted document %s (%s, %d bytes) for tenant %s", doc.ID, mimeType, doc.ByteSize, tenant)
	return doc, nil
}

// resubmit re-queues an existing document after a same-checksum upload.
// The document row is immutable; only its status moves.
func (i *Ingestor) resubmit(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	status, err := i.statusStore.Get(ctx, doc.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get status: %w", err)
	}
	if status != nil && !status.State.Terminal() {
		return nil, fmt.Errorf("%w: document %s", domain.ErrIngestionInProgress, doc.ID)
	}
	if status == nil {
		status = domain.NewIngestionStatus(doc.ID)
	} else {
		status.Reset()
	}
	if err := i.statusStore.Save(ctx, status); err != nil {
		return nil, fmt.Errorf("save status: %w", err)
	}

	if err := i.enqueue(doc.TenantID, doc.ID); err != nil {
		if ferr := status.Fail("ingestion queue full"); ferr == nil {
			if serr := i.statusStore.Save(ctx, status); serr != nil {
				logger.Warn("Save status for %s: %v", doc.ID, serr)
			}
		}
		return nil, err
	}

	logger.Info("Re-processing document %s (checksum match)", doc.ID)
	return doc, nil
}

// Status returns the ingestion status for a document the tenant can see.
func (i *Ingestor) Status(ctx context.Context, tc domain.TenantContext, documentID string) (*domain.IngestionStatus, error) {
	if _, err := i.docStore.GetDocument(ctx, tc.Tenant(), documentID); err != nil {
		return nil, err
	}
	return i.statusStore.Get(ctx, documentID)
}

// Reindex queues re-ingestion from stored bytes for the given
// documents, or for all the tenant's documents when none are named.
// Documents already queued or running are skipped.
func (i *Ingestor) Reindex(ctx context.Context, tc domain.TenantContext, documentIDs []string) (int, error) {
	if err := tc.Require(domain.CapabilityAdmin); err != nil {
		return 0, err
	}
	tenant := tc.Tenant()

	var docs []domain.Document
	if len(documentIDs) == 0 {
		all, err := i.docStore.ListDocuments(ctx, tenant)
		if err != nil {
			return 0, fmt.Errorf("list documents: %w", err)
		}
		docs = all
	} else {
		for _, id := range documentIDs {
			doc, err := i.docStore.GetDocument(ctx, tenant, id)
			if err != nil {
				return 0, err
			}
			docs = append(docs, *doc)
		}
	}

	queued := 0
	for n := range docs {
		doc := &docs[n]
		status, err := i.statusStore.Get(ctx, doc.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return queued, fmt.Errorf("get status: %w", err)
		}
		if status != nil && !status.State.Terminal() {
			continue
		}
		if status == nil {
			status = domain.NewIngestionStatus(doc.ID)
		} else {
			status.Reset()
		}
		if err := i.statusStore.Save(ctx, status); err != nil {
			return queued, fmt.Errorf("save status: %w", err)
		}
		if err := i.enqueue(doc.TenantID, doc.ID); err != nil {
			if errors.Is(err, domain.ErrIngestionInProgress) {
				continue
			}
			if ferr := status.Fail("ingestion queue full"); ferr == nil {
				if serr := i.statusStore.Save(ctx, status); serr != nil {
					logger.Warn("Save status for %s: %v", doc.ID, serr)
				}
			}
			return queued, err
		}
		queued++
	}

	logger.Info("Queued %d documents for re-indexing in tenant %s", queued, tenant)
	return queued, nil
}

// enqueue reserves the document in the active set and queues a job.
func (i *Ingestor) enqueue(tenant domain.TenantID, documentID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.active[documentID]; ok {
		return fmt.Errorf("%w: document %s", domain.ErrIngestionInProgress, documentID)
	}
	select {
	case i.jobs <- ingestJob{tenant: tenant, documentID: documentID}:
		i.active[documentID] = struct{}{}
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// release removes a document from the active set once its run ends.
func (i *Ingestor) release(documentID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.active, documentID)
}

func (i *Ingestor) worker(ctx context.Context, stopCh <-chan struct{}) {
	defer i.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case job := <-i.jobs:
			i.process(ctx, job)
			i.release(job.documentID)
		}
	}
}

// process runs the pipeline for one document: chunking, embedding,
// indexing, completed. Every stage change is persisted before the
// stage runs so the status always reflects what is happening.
func (i *Ingestor) process(ctx context.Context, job ingestJob) {
	doc, err := i.docStore.GetDocument(ctx, job.tenant, job.documentID)
	if err != nil {
		logger.Warn("Pipeline lookup for %s: %v", job.documentID, err)
		return
	}
	status, err := i.statusStore.Get(ctx, doc.ID)
	if err != nil {
		logger.Warn("Pipeline status for %s: %v", doc.ID, err)
		return
	}

	logger.Section("Ingestion Pipeline")
	logger.Debug("Processing document %s (%s)", doc.ID, doc.Filename)

	if err := i.advance(ctx, status, domain.IngestionChunking); err != nil {
		i.fail(ctx, doc, status, "update status", err)
		return
	}
	chunks, err := i.chunkDocument(ctx, doc)
	if err != nil {
		i.fail(ctx, doc, status, "extract text", err)
		return
	}

	if err := i.advance(ctx, status, domain.IngestionEmbedding); err != nil {
		i.fail(ctx, doc, status, "update status", err)
		return
	}
	if err := i.embedChunks(ctx, chunks); err != nil {
		i.fail(ctx, doc, status, "embed chunks", err)
		return
	}

	if err := i.advance(ctx, status, domain.IngestionIndexing); err != nil {
		i.fail(ctx, doc, status, "update status", err)
		return
	}
	if err := i.indexChunks(ctx, doc, chunks); err != nil {
		i.fail(ctx, doc, status, "index chunks", err)
		return
	}

	status.ChunksCreated = len(chunks)
	if err := i.advance(ctx, status, domain.IngestionCompleted); err != nil {
		i.fail(ctx, doc, status, "update status", err)
		return
	}

	logger.Info("Document %s ingested: %d chunks", doc.ID, len(chunks))
}

// advance moves the status forward and persists it.
func (i *Ingestor) advance(ctx context.Context, status *domain.IngestionStatus, next domain.IngestionState) error {
	if err := status.Advance(next); err != nil {
		return err
	}
	if err := i.statusStore.Save(ctx, status); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

// fail records the failure and removes the document's vectors so no
// partial state stays searchable.
func (i *Ingestor) fail(ctx context.Context, doc *domain.Document, status *domain.IngestionStatus, stage string, cause error) {
	logger.Warn("Ingestion of %s failed at %s: %v", doc.ID, stage, cause)

	stepCtx, cancel := context.WithTimeout(ctx, i.stepTimeout)
	defer cancel()
	if err := i.vectors.DeleteDocument(stepCtx, doc.TenantID, doc.ID); err != nil {
		logger.Warn("Clean up vectors for %s: %v", doc.ID, err)
	}

	if err := status.Fail(fmt.Sprintf("%s: %v", stage, cause)); err != nil {
		logger.Warn("Mark %s failed: %v", doc.ID, err)
		return
	}
	if err := i.statusStore.Save(ctx, status); err != nil {
		logger.Warn("Save status for %s: %v", doc.ID, err)
	}
}

// chunkDocument fetches the stored bytes, extracts text and chunks it.
func (i *Ingestor) chunkDocument(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	stepCtx, cancel := context.WithTimeout(ctx, i.stepTimeout)
	defer cancel()

	data, err := i.objects.Get(stepCtx, doc.StorageRef)
	if err != nil {
		return nil, fmt.Errorf("fetch stored bytes: %w", err)
	}
	normaliser, err := i.registry.ForMIMEType(doc.MIMEType)
	if err != nil {
		return nil, err
	}
	text, err := normaliser.Normalise(stepCtx, &domain.Upload{
		Filename:     doc.Filename,
		DeclaredMIME: doc.MIMEType,
		Content:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}
	chunks, err := i.chunker.Chunk(stepCtx, doc.ID, text)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	return chunks, nil
}

// embedChunks generates embeddings for every chunk and tags them with
// the model version.
func (i *Ingestor) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	stepCtx, cancel := context.WithTimeout(ctx, i.stepTimeout)
	defer cancel()

	texts := make([]string, len(chunks))
	for n := range chunks {
		texts[n] = chunks[n].Text
	}
	vectors, err := i.embedder.EmbedBatch(stepCtx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}
	version := i.embedder.ModelVersion()
	for n := range chunks {
		chunks[n].Embedding = vectors[n]
		chunks[n].ModelVersion = version
	}
	return nil
}

// indexChunks writes vectors and chunk rows. Prior vectors go first so
// a model migration never leaves two vector spaces for one document.
func (i *Ingestor) indexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	stepCtx, cancel := context.WithTimeout(ctx, i.stepTimeout)
	defer cancel()

	if err := i.vectors.DeleteDocument(stepCtx, doc.TenantID, doc.ID); err != nil {
		return fmt.Errorf("delete prior vectors: %w", err)
	}
	entries := make([]driven.IndexEntry, len(chunks))
	for n := range chunks {
		entries[n] = driven.IndexEntry{
			Tenant:       doc.TenantID,
			DocumentID:   doc.ID,
			ChunkIndex:   chunks[n].Index,
			Vector:       chunks[n].Embedding,
			ModelVersion: chunks[n].ModelVersion,
			Text:         chunks[n].Text,
			DocumentName: doc.Filename,
			PageNumber:   chunks[n].PageNumber,
		}
	}
	if err := i.vectors.Upsert(stepCtx, entries); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	if err := i.docStore.ReplaceChunks(stepCtx, doc, chunks); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}
	return nil
}

// effectiveMIMEType sniffs the content type from the bytes. The
// declared type is advisory: it is honoured only when it names a
// refinable text format and the bytes sniff as plain text.
func effectiveMIMEType(declared string, content []byte) string {
	sniffed := baseMIMEType(mimetype.Detect(content).String())
	declared = baseMIMEType(declared)
	if sniffed == "text/plain" && refinableTypes[declared] {
		return declared
	}
	return sniffed
}

// baseMIMEType strips parameters such as charset.
func baseMIMEType(s string) string {
	if n := strings.IndexByte(s, ';'); n >= 0 {
		s = s[:n]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// contentChecksum digests upload bytes for duplicate detection.
func contentChecksum(content []byte) string {
	sum := blake3.Sum256(content)
	return "blake3:" + hex.EncodeToString(sum[:])
}
