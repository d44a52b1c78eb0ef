package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

type submitRecord struct {
	tenant   domain.TenantID
	actor    string
	ingest   bool
	filename string
	content  []byte
}

// mockIngestionService records submissions from timer goroutines.
type mockIngestionService struct {
	mu      sync.Mutex
	submits []submitRecord
	err     error
}

func (m *mockIngestionService) Submit(_ context.Context, tc domain.TenantContext, upload domain.Upload) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, submitRecord{
		tenant:   tc.Tenant(),
		actor:    tc.Actor(),
		ingest:   tc.Can(domain.CapabilityIngest),
		filename: upload.Filename,
		content:  append([]byte(nil), upload.Content...),
	})
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{ID: "doc-1", TenantID: tc.Tenant(), Filename: upload.Filename}, nil
}

func (m *mockIngestionService) Status(_ context.Context, _ domain.TenantContext, _ string) (*domain.IngestionStatus, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIngestionService) Reindex(_ context.Context, _ domain.TenantContext, _ []string) (int, error) {
	return 0, nil
}

func (m *mockIngestionService) records() []submitRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]submitRecord(nil), m.submits...)
}

// waitForSubmits polls until the mock has seen want submissions.
func waitForSubmits(t *testing.T, svc *mockIngestionService, want int) []submitRecord {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		records := svc.records()
		if len(records) >= want {
			return records
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d submission(s), got %d", want, len(svc.records()))
	return nil
}

func startWatcher(t *testing.T, svc *mockIngestionService, dir string) *Watcher {
	t.Helper()
	w := New(svc, Config{
		Folders:     []Folder{{Path: dir, Tenant: "acme-breach-2026"}},
		SettleDelay: 100 * time.Millisecond,
	})
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func TestNew_DefaultSettleDelay(t *testing.T) {
	w := New(&mockIngestionService{}, Config{})
	assert.Equal(t, DefaultSettleDelay, w.settle)

	w = New(&mockIngestionService{}, Config{SettleDelay: 5 * time.Second})
	assert.Equal(t, 5*time.Second, w.settle)
}

func TestWatcher_Start_NoFolders(t *testing.T) {
	w := New(&mockIngestionService{}, Config{})

	err := w.Start(context.Background())

	assert.ErrorIs(t, err, ErrNoFolders)
}

func TestWatcher_Start_MissingIngestionService(t *testing.T) {
	w := New(nil, Config{Folders: []Folder{{Path: t.TempDir(), Tenant: "acme-breach-2026"}}})

	err := w.Start(context.Background())

	assert.ErrorIs(t, err, ErrMissingIngestionService)
}

func TestWatcher_Start_MissingFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	w := New(&mockIngestionService{}, Config{Folders: []Folder{{Path: dir, Tenant: "acme-breach-2026"}}})

	err := w.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching")
}

func TestWatcher_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	svc := &mockIngestionService{}
	startWatcher(t, svc, dir)

	err := os.WriteFile(filepath.Join(dir, "forensics-report.txt"), []byte("intrusion timeline"), 0o644)
	require.NoError(t, err)

	records := waitForSubmits(t, svc, 1)
	assert.Equal(t, domain.TenantID("acme-breach-2026"), records[0].tenant)
	assert.Equal(t, "watcher", records[0].actor)
	assert.True(t, records[0].ingest)
	assert.Equal(t, "forensics-report.txt", records[0].filename)
	assert.Equal(t, []byte("intrusion timeline"), records[0].content)
}

func TestWatcher_PicksUpExistingFiles(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "backlog.txt"), []byte("dropped before start"), 0o644)
	require.NoError(t, err)

	svc := &mockIngestionService{}
	startWatcher(t, svc, dir)

	records := waitForSubmits(t, svc, 1)
	assert.Equal(t, "backlog.txt", records[0].filename)
	assert.Equal(t, []byte("dropped before start"), records[0].content)
}

func TestWatcher_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	svc := &mockIngestionService{}
	startWatcher(t, svc, dir)

	path := filepath.Join(dir, "growing.txt")
	require.NoError(t, os.WriteFile(path, []byte("part one"), 0o644))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("part one and two"), 0o644))

	records := waitForSubmits(t, svc, 1)

	// Give a second pickup a chance to fire before asserting there is none.
	time.Sleep(250 * time.Millisecond)
	records = svc.records()
	require.Len(t, records, 1)
	assert.Equal(t, []byte("part one and two"), records[0].content)
}

func TestWatcher_SkipsHiddenAndTempFiles(t *testing.T) {
	dir := t.TempDir()
	svc := &mockIngestionService{}
	startWatcher(t, svc, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "draft.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "evidence.txt"), []byte("kept"), 0o644))

	records := waitForSubmits(t, svc, 1)
	require.Len(t, records, 1)
	assert.Equal(t, "evidence.txt", records[0].filename)
}

func TestWatcher_SubmitFailureKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	svc := &mockIngestionService{err: errors.New("storage offline")}
	startWatcher(t, svc, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "first.txt"), []byte("a"), 0o644))
	waitForSubmits(t, svc, 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.txt"), []byte("b"), 0o644))
	records := waitForSubmits(t, svc, 2)

	names := []string{records[0].filename, records[1].filename}
	assert.Contains(t, names, "first.txt")
	assert.Contains(t, names, "second.txt")
}

func TestWatcher_StopCancelsPending(t *testing.T) {
	dir := t.TempDir()
	svc := &mockIngestionService{}
	w := New(svc, Config{
		Folders:     []Folder{{Path: dir, Tenant: "acme-breach-2026"}},
		SettleDelay: 200 * time.Millisecond,
	})
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("x"), 0o644))
	w.Stop()

	time.Sleep(400 * time.Millisecond)
	assert.Empty(t, svc.records())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	svc := &mockIngestionService{}
	w := New(svc, Config{Folders: []Folder{{Path: dir, Tenant: "acme-breach-2026"}}})
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}

func TestWatcher_StopBeforeStart(t *testing.T) {
	w := New(&mockIngestionService{}, Config{})
	w.Stop()
}

func TestSkipFile(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "regular file", path: "/drop/report.pdf", want: false},
		{name: "hidden file", path: "/drop/.DS_Store", want: true},
		{name: "editor backup", path: "/drop/notes.txt~", want: true},
		{name: "temp file", path: "/drop/upload.tmp", want: true},
		{name: "partial download", path: "/drop/export.part", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, skipFile(tt.path))
		})
	}
}
