package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidentia-labs/evidentia/internal/adapters/driving/tui/messages"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
)

func newTestPorts(t *testing.T) *Ports {
	t.Helper()
	return &Ports{
		Tenant:    monitorTenant(t),
		Documents: &MockDocumentService{},
		Ingest:    &MockIngestionService{},
	}
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(newTestPorts(t))

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewMonitor, app.CurrentView())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	ports := &Ports{
		Tenant: monitorTenant(t),
		Ingest: &MockIngestionService{},
	}

	app, err := NewApp(ports)

	assert.Error(t, err)
	assert.Nil(t, app)
	assert.ErrorIs(t, err, ErrMissingDocumentService)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")
	result := app.WithContext(ctx)

	assert.Equal(t, app, result)
}

func TestApp_Init(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))

	cmd := app.Init()

	// Init returns a batch command
	assert.NotNil(t, cmd)
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))

	msg := tea.WindowSizeMsg{Width: 80, Height: 24}
	model, cmd := app.Update(msg)

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
}

func TestApp_Update_QuitKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
	}{
		{name: "q quits", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}},
		{name: "ctrl+c quits", key: tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := NewApp(newTestPorts(t))
			app.SetDimensions(80, 24)

			_, cmd := app.Update(tt.key)

			require.NotNil(t, cmd)
			assert.Equal(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestApp_Update_HelpToggle(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))
	app.SetDimensions(80, 24)

	helpKey := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}}

	app.Update(helpKey)
	assert.Equal(t, messages.ViewHelp, app.CurrentView())

	app.Update(helpKey)
	assert.Equal(t, messages.ViewMonitor, app.CurrentView())
}

func TestApp_Update_EscLeavesHelp(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))
	app.SetDimensions(80, 24)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	require.Equal(t, messages.ViewHelp, app.CurrentView())

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMonitor, app.CurrentView())
}

func TestApp_Update_DocumentsLoaded(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))
	app.SetDimensions(80, 24)

	overviews := []driving.DocumentOverview{
		{
			Document: domain.Document{
				ID:         "doc-1",
				Filename:   "forensics-report.pdf",
				UploadedAt: time.Now(),
			},
			State:         domain.IngestionCompleted,
			ChunksCreated: 12,
		},
	}

	model, cmd := app.Update(messages.DocumentsLoaded{Overviews: overviews})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.Contains(t, app.View(), "forensics-report.pdf")
}

func TestApp_Update_DocumentsLoadedWhileHelpOpen(t *testing.T) {
	// Poll results must still reach the monitor when help is shown.
	app, _ := NewApp(newTestPorts(t))
	app.SetDimensions(80, 24)
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})

	overviews := []driving.DocumentOverview{
		{
			Document: domain.Document{ID: "doc-1", Filename: "notes.txt", UploadedAt: time.Now()},
			State:    domain.IngestionPending,
		},
	}
	app.Update(messages.DocumentsLoaded{Overviews: overviews})

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Contains(t, app.View(), "notes.txt")
}

func TestApp_Update_ErrorOccurred(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))
	app.SetDimensions(80, 24)

	loadErr := errors.New("list documents: storage offline")
	app.Update(messages.ErrorOccurred{Err: loadErr})

	assert.Equal(t, loadErr, app.Err())
}

func TestApp_View_BeforeReady(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_View_Help(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))
	app.SetDimensions(80, 24)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})

	view := app.View()
	assert.Contains(t, view, "Help")
	assert.Contains(t, view, "Requeue the selected failed document")
}

func TestApp_View_Monitor(t *testing.T) {
	app, _ := NewApp(newTestPorts(t))
	app.SetDimensions(80, 24)

	view := app.View()
	assert.Contains(t, view, "Ingestion Monitor")
	assert.Contains(t, view, "acme-breach-2026")
}
