package driven

import (
	"context"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// Normaliser extracts plain text from uploaded bytes.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts text from an upload. Extractors that know
	// page boundaries report them; others leave PageStarts empty.
	Normalise(ctx context.Context, upload *domain.Upload) (*domain.ExtractedText, error)
}

// NormaliserRegistry selects the normaliser for a MIME type.
type NormaliserRegistry interface {
	// Register adds a normaliser to the registry.
	Register(n Normaliser)

	// ForMIMEType returns the highest-priority normaliser for the
	// type, or domain.ErrUnsupportedType.
	ForMIMEType(mimeType string) (Normaliser, error)

	// SupportedMIMETypes returns all registered MIME types.
	SupportedMIMETypes() []string
}
