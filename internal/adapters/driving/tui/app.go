package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/evidentia-labs/evidentia/internal/adapters/driving/tui/messages"
	"github.com/evidentia-labs/evidentia/internal/adapters/driving/tui/styles"
	"github.com/evidentia-labs/evidentia/internal/adapters/driving/tui/views/monitor"
)

// App is the monitor application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// monitorView is the ingestion dashboard.
	monitorView *monitor.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new monitor application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	monitorView := monitor.NewView(s, ports.Tenant, ports.Documents, ports.Ingest)

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		monitorView: monitorView,
		currentView: messages.ViewMonitor,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("evidentia - Ingestion Monitor"),
		a.monitorView.Init(),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.monitorView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "?":
			if a.currentView == messages.ViewHelp {
				a.currentView = messages.ViewMonitor
			} else {
				a.currentView = messages.ViewHelp
			}
			return a, nil
		case "esc":
			if a.currentView == messages.ViewHelp {
				a.currentView = messages.ViewMonitor
			}
			return a, nil
		}

		if a.currentView == messages.ViewMonitor {
			a.monitorView, cmd = a.monitorView.Update(msg)
			a.err = a.monitorView.Err()
			return a, cmd
		}
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.monitorView, cmd = a.monitorView.Update(msg)
		return a, cmd
	}

	// Forward everything else to the monitor so polling continues
	// while the help view is open.
	a.monitorView, cmd = a.monitorView.Update(msg)
	a.err = a.monitorView.Err()
	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.monitorView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  j/k, ↑/↓    Navigate documents
  esc         Back to monitor
  ctrl+c, q   Quit

Monitor:
  enter       Requeue the selected failed document
  r           Reload now
  p           Pause/resume automatic refresh

The monitor polls the document list every two seconds and shows each
document's pipeline stage, chunk count and failure reason.

[esc] back to monitor`
}

// Run starts the monitor application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.monitorView.SetDimensions(width, height)
}

// Ready returns true once the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}
