// Package watcher ingests files dropped into configured tenant folders.
//
// Each watched folder is bound to a single tenant. New or modified files
// are held until they stop changing for the settle delay, then read and
// submitted through the ingestion service like any other upload.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
	"github.com/evidentia-labs/evidentia/internal/logger"
)

// DefaultSettleDelay is how long a file must stay unchanged before pickup.
const DefaultSettleDelay = 2 * time.Second

// ErrNoFolders is returned by Start when no folders are configured.
var ErrNoFolders = errors.New("watcher: no folders configured")

// ErrMissingIngestionService is returned when the watcher has no ingestion service.
var ErrMissingIngestionService = errors.New("watcher: ingestion service is required")

// Folder binds a watched directory to the tenant its files belong to.
type Folder struct {
	Path   string
	Tenant domain.TenantID
}

// Config configures the drop-folder watcher.
type Config struct {
	Folders []Folder

	// SettleDelay is how long a file must stay unchanged before it is
	// picked up. Zero means DefaultSettleDelay.
	SettleDelay time.Duration
}

// Watcher submits settled drop-folder files to the ingestion pipeline.
type Watcher struct {
	ingest driving.IngestionService
	settle time.Duration

	// tenants maps a cleaned folder path to its tenant.
	tenants map[string]domain.TenantID

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool

	done chan struct{}
}

// New builds a watcher over the configured folders. Start must be
// called before any files are picked up.
func New(ingest driving.IngestionService, cfg Config) *Watcher {
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	tenants := make(map[string]domain.TenantID, len(cfg.Folders))
	for _, folder := range cfg.Folders {
		tenants[filepath.Clean(folder.Path)] = folder.Tenant
	}

	return &Watcher{
		ingest:  ingest,
		settle:  settle,
		tenants: tenants,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
}

// Start begins watching the configured folders. Files already present
// are scheduled for pickup alongside new arrivals. The event loop runs
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.ingest == nil {
		return ErrMissingIngestionService
	}
	if len(w.tenants) == 0 {
		return ErrNoFolders
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	for path := range w.tenants {
		if err := fsw.Add(path); err != nil {
			fsw.Close() //nolint:errcheck
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	// Pick up files that were dropped before the watcher started.
	for path := range w.tenants {
		w.scanExisting(path)
	}

	go w.loop(ctx)

	logger.Info("Watching %d drop folder(s)", len(w.tenants))
	return nil
}

// Stop ends the event loop and cancels any pending pickups. Files
// whose settle timer has not fired are left in place for the next run.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	fsw := w.fsw
	w.mu.Unlock()

	if fsw != nil {
		fsw.Close() //nolint:errcheck
		<-w.done
	}
}

// loop dispatches filesystem events until the watcher is closed.
func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Drop folder watch error: %v", err)
		}
	}
}

// handleEvent schedules a settle timer for created or modified files.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	w.schedule(event.Name)
}

// schedule resets the settle timer for path. The file is picked up
// once no further events arrive within the settle delay.
func (w *Watcher) schedule(path string) {
	if skipFile(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.pickup(path)
	})
}

// scanExisting schedules every regular file already in the folder.
func (w *Watcher) scanExisting(folder string) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		logger.Warn("Scanning drop folder %s: %v", folder, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.schedule(filepath.Join(folder, entry.Name()))
	}
}

// pickup reads a settled file and submits it for ingestion.
func (w *Watcher) pickup(path string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	tenant, ok := w.tenants[filepath.Clean(filepath.Dir(path))]
	if !ok {
		logger.Warn("Ignoring file outside watched folders: %s", path)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Removed before settling, or a directory; nothing to ingest.
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Reading dropped file %s: %v", path, err)
		return
	}

	tc := domain.NewTenantContext(tenant, "watcher", domain.CapabilityIngest)
	upload := domain.Upload{
		Filename: filepath.Base(path),
		Content:  content,
	}

	doc, err := w.ingest.Submit(context.Background(), tc, upload)
	if err != nil {
		if errors.Is(err, domain.ErrIngestionInProgress) {
			logger.Debug("Dropped file %s already being processed", path)
			return
		}
		logger.Warn("Submitting dropped file %s for tenant %s: %v", path, tenant, err)
		return
	}

	logger.Info("Ingesting dropped file %s as document %s (tenant %s)", upload.Filename, doc.ID, tenant)
}

// skipFile filters out hidden and editor temp files.
func skipFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	return strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".part")
}
