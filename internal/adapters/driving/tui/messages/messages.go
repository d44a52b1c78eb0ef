// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
)

// DocumentsLoaded carries the tenant's document overviews back to the model.
type DocumentsLoaded struct {
	Overviews []driving.DocumentOverview
	Err       error
}

// PollTick signals it is time to refresh the document list.
type PollTick struct{}

// ReindexRequested is a command to requeue a document for ingestion.
type ReindexRequested struct {
	DocumentID string
}

// ReindexCompleted signals a requeue finished.
type ReindexCompleted struct {
	DocumentID string
	Err        error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMonitor is the ingestion dashboard.
	ViewMonitor ViewType = iota
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMonitor:
		return "monitor"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
