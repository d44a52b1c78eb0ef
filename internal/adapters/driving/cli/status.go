package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show ingestion pipeline progress",
	Long: `Shows the pipeline state of the tenant's documents.

Without arguments every document is listed with its current state.
With a document ID the full ingestion status is shown, including the
failure reason when the pipeline stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return runStatusOne(cmd, args[0])
	}
	return runStatusAll(cmd)
}

func runStatusAll(cmd *cobra.Command) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	tc, err := tenantContext(domain.CapabilitySearch)
	if err != nil {
		return err
	}

	overviews, err := documentService.List(context.Background(), tc)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(overviews) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	var completed, failed int
	for i := range overviews {
		o := &overviews[i]

		chunks := "-"
		if o.State == domain.IngestionCompleted {
			chunks = fmt.Sprintf("%d", o.ChunksCreated)
			completed++
		}

		cmd.Printf("  %-36s  %-10s  %6s  %s\n", o.Document.ID, o.State, chunks, o.Document.Filename)
		if o.State == domain.IngestionFailed {
			cmd.Printf("  %-36s  %s\n", "", o.ErrorMessage)
			failed++
		}
	}

	cmd.Println()
	cmd.Printf("Total: %d document(s), %d completed, %d failed\n", len(overviews), completed, failed)
	return nil
}

func runStatusOne(cmd *cobra.Command, documentID string) error {
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	tc, err := tenantContext(domain.CapabilitySearch)
	if err != nil {
		return err
	}

	status, err := ingestService.Status(context.Background(), tc, documentID)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	cmd.Printf("Document: %s\n\n", status.DocumentID)
	cmd.Printf("  State:    %s\n", status.State)
	if status.State == domain.IngestionCompleted {
		cmd.Printf("  Chunks:   %d\n", status.ChunksCreated)
	}
	if status.ErrorMessage != "" {
		cmd.Printf("  Error:    %s\n", status.ErrorMessage)
	}
	cmd.Printf("  Updated:  %s\n", status.UpdatedAt.Format("2006-01-02 15:04:05"))

	return nil
}
