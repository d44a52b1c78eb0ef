package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound is returned when the pdftotext binary is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner executes an external command and returns its stdout.
// It exists so tests can substitute a fake pdftotext.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Normaliser extracts text from PDF documents using poppler's pdftotext.
// Page boundaries are preserved so downstream chunks carry page numbers.
type Normaliser struct {
	runner CommandRunner
}

// New creates a new PDF normaliser using the system pdftotext binary.
func New() *Normaliser {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific install guidance for pdftotext.
func InstallInstructions() string {
	return `pdftotext is required for PDF ingestion and was not found in PATH.

Install it with your platform's package manager:

  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}

// Normalise extracts the text of a PDF upload. The returned PageStarts
// slice records the rune offset where each page begins, derived from the
// form feed separators pdftotext emits between pages.
func (n *Normaliser) Normalise(ctx context.Context, upload *domain.Upload) (*domain.ExtractedText, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	if err := CheckAvailable(); err != nil {
		return nil, err
	}

	// pdftotext reads from a file, so stage the upload in a temp file.
	tmp, err := os.CreateTemp("", "evidentia-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(upload.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	// -layout preserves column structure, "-" streams text to stdout.
	output, err := n.runner.Run(ctx, "pdftotext", "-layout", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	text, starts := assemblePages(string(output))
	return &domain.ExtractedText{
		Text:       text,
		PageStarts: starts,
	}, nil
}

// assemblePages splits pdftotext output on form feeds, trims page padding,
// and rejoins the pages into a single text with per-page rune offsets.
// Empty pages keep their slot so later pages stay correctly numbered.
func assemblePages(raw string) (string, []int) {
	pages := strings.Split(raw, "\f")

	// pdftotext emits a trailing form feed after the final page.
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}

	var b strings.Builder
	starts := make([]int, 0, len(pages))
	offset := 0
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if i > 0 {
			b.WriteString("\n")
			offset++
		}
		starts = append(starts, offset)
		b.WriteString(page)
		offset += utf8.RuneCountInString(page)
	}

	return b.String(), starts
}
