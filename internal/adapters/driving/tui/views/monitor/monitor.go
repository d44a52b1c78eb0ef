// Package monitor provides the ingestion dashboard view for the TUI.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/evidentia-labs/evidentia/internal/adapters/driving/tui/messages"
	"github.com/evidentia-labs/evidentia/internal/adapters/driving/tui/styles"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
)

// PollInterval is how often the monitor refreshes the document list.
const PollInterval = 2 * time.Second

// View is the ingestion dashboard view. It polls the document service
// and renders each document's position in the pipeline.
type View struct {
	styles    *styles.Styles
	tenant    domain.TenantContext
	documents driving.DocumentService
	ingest    driving.IngestionService

	overviews    []driving.DocumentOverview
	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
	paused       bool
	refreshedAt  time.Time
}

// NewView creates a new monitor view.
func NewView(s *styles.Styles, tenant domain.TenantContext, documents driving.DocumentService, ingest driving.IngestionService) *View {
	return &View{
		styles:    s,
		tenant:    tenant,
		documents: documents,
		ingest:    ingest,
		overviews: []driving.DocumentOverview{},
		loading:   true,
	}
}

// Init initialises the view: one immediate load plus the poll chain.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.loadDocuments(), v.tick())
}

// loadDocuments returns a command that loads the tenant's documents.
func (v *View) loadDocuments() tea.Cmd {
	return func() tea.Msg {
		if v.documents == nil {
			return messages.DocumentsLoaded{Err: fmt.Errorf("document service not available")}
		}

		overviews, err := v.documents.List(context.Background(), v.tenant)
		return messages.DocumentsLoaded{
			Overviews: overviews,
			Err:       err,
		}
	}
}

// tick returns a command that emits the next poll tick.
func (v *View) tick() tea.Cmd {
	return tea.Tick(PollInterval, func(time.Time) tea.Msg {
		return messages.PollTick{}
	})
}

// requeue returns a command that requeues a failed document.
func (v *View) requeue(documentID string) tea.Cmd {
	return func() tea.Msg {
		if v.ingest == nil {
			return messages.ReindexCompleted{DocumentID: documentID, Err: fmt.Errorf("ingestion service not available")}
		}

		_, err := v.ingest.Reindex(context.Background(), v.tenant, []string{documentID})
		return messages.ReindexCompleted{DocumentID: documentID, Err: err}
	}
}

// Update handles messages for the monitor view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.PollTick:
		// Always keep the chain alive; skip the load while paused.
		if v.paused {
			return v, v.tick()
		}
		return v, tea.Batch(v.loadDocuments(), v.tick())

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.overviews = msg.Overviews
			v.err = nil
			v.refreshedAt = time.Now()
			if v.selected >= len(v.overviews) && len(v.overviews) > 0 {
				v.selected = len(v.overviews) - 1
			}
		}
		return v, nil

	case messages.ReindexCompleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		return v, v.loadDocuments()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.overviews)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if doc := v.SelectedDocument(); doc != nil && doc.State == domain.IngestionFailed {
			return v, v.requeue(doc.Document.ID)
		}
	case "r":
		v.loading = true
		return v, v.loadDocuments()
	case "p":
		v.paused = !v.paused
	}

	return v, nil
}

// adjustScroll keeps the selected row visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of rows that fit on screen.
func (v *View) visibleItemCount() int {
	// Reserve lines for title, summary, header, error detail and help.
	reserved := 10
	available := v.height - reserved
	if available < 1 {
		available = 1
	}
	return available
}

// View renders the monitor.
func (v *View) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Ingestion Monitor - %s (%d documents)", v.tenant.Tenant(), len(v.overviews))
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	if v.loading && len(v.overviews) == 0 {
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if len(v.overviews) == 0 {
		b.WriteString(v.styles.Muted.Render("No documents ingested yet."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	b.WriteString(v.renderSummary())
	b.WriteString("\n\n")

	visibleItems := v.visibleItemCount()
	for i := v.scrollOffset; i < len(v.overviews) && i < v.scrollOffset+visibleItems; i++ {
		b.WriteString(v.renderRow(i, &v.overviews[i]))
		b.WriteString("\n")
	}

	if len(v.overviews) > visibleItems {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1,
			min(v.scrollOffset+visibleItems, len(v.overviews)),
			len(v.overviews))))
	}

	if detail := v.renderSelectedError(); detail != "" {
		b.WriteString("\n")
		b.WriteString(detail)
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderSummary renders the per-state counts line.
func (v *View) renderSummary() string {
	var completed, failed, inflight int
	for i := range v.overviews {
		switch v.overviews[i].State {
		case domain.IngestionCompleted:
			completed++
		case domain.IngestionFailed:
			failed++
		default:
			inflight++
		}
	}

	parts := []string{
		v.styles.Success.Render(fmt.Sprintf("%d completed", completed)),
		v.styles.Warning.Render(fmt.Sprintf("%d in flight", inflight)),
		v.styles.Error.Render(fmt.Sprintf("%d failed", failed)),
	}
	if v.paused {
		parts = append(parts, v.styles.Muted.Render("refresh paused"))
	}

	return "  " + strings.Join(parts, "   ")
}

// renderRow renders a single document row.
func (v *View) renderRow(index int, ov *driving.DocumentOverview) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	filename := ov.Document.Filename
	if filename == "" {
		filename = ov.Document.ID
	}

	maxNameLen := v.width - 36
	if maxNameLen < 16 {
		maxNameLen = 16
	}
	if len(filename) > maxNameLen {
		filename = filename[:maxNameLen-3] + "..."
	}

	chunks := "-"
	if ov.State == domain.IngestionCompleted {
		chunks = fmt.Sprintf("%d", ov.ChunksCreated)
	}

	age := formatAge(time.Since(ov.Document.UploadedAt))

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-10s  %-*s  %6s  %8s",
			indicator, ov.State, maxNameLen, filename, chunks, age))
	}

	return v.styles.Normal.Render(indicator) +
		v.renderState(ov.State) +
		v.styles.Normal.Render(fmt.Sprintf("  %-*s  ", maxNameLen, filename)) +
		v.styles.Muted.Render(fmt.Sprintf("%6s  %8s", chunks, age))
}

// renderState renders the state badge with its colour.
func (v *View) renderState(state domain.IngestionState) string {
	badge := fmt.Sprintf("%-10s", state)
	switch state {
	case domain.IngestionCompleted:
		return v.styles.Success.Render(badge)
	case domain.IngestionFailed:
		return v.styles.Error.Render(badge)
	case domain.IngestionPending:
		return v.styles.Muted.Render(badge)
	default:
		return v.styles.Warning.Render(badge)
	}
}

// renderSelectedError renders the failure reason for the selected row.
func (v *View) renderSelectedError() string {
	doc := v.SelectedDocument()
	if doc == nil || doc.State != domain.IngestionFailed || doc.ErrorMessage == "" {
		return ""
	}
	return v.styles.Error.Render(fmt.Sprintf("  └ %s", doc.ErrorMessage))
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [enter] retry failed  [r] reload  [p] pause  [q] quit")
}

// formatAge renders a duration as a compact relative age.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Overviews returns the current document overviews.
func (v *View) Overviews() []driving.DocumentOverview {
	return v.overviews
}

// SelectedIndex returns the currently selected row index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected overview.
func (v *View) SelectedDocument() *driving.DocumentOverview {
	if v.selected < len(v.overviews) {
		return &v.overviews[v.selected]
	}
	return nil
}

// Paused returns true when automatic refresh is off.
func (v *View) Paused() bool {
	return v.paused
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
