package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// ingestPollInterval is how often --wait checks the pipeline state.
const ingestPollInterval = 500 * time.Millisecond

var ingestWait bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]...",
	Short: "Upload evidence files for indexing",
	Long: `Uploads one or more files into the tenant's evidence store and queues
them for ingestion. The pipeline extracts text, chunks it, embeds the
chunks and indexes them in the background.

With --wait the command polls until every document reaches a terminal
state and reports the outcome.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "wait for ingestion to complete")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	tc, err := tenantContext(domain.CapabilityIngest)
	if err != nil {
		return err
	}

	ctx := context.Background()

	var accepted []string
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		upload := domain.Upload{
			Filename:     filepath.Base(path),
			DeclaredMIME: mime.TypeByExtension(filepath.Ext(path)),
			Content:      content,
		}

		doc, err := ingestService.Submit(ctx, tc, upload)
		if err != nil {
			return fmt.Errorf("submitting %s: %w", path, err)
		}

		cmd.Printf("Accepted %s as document %s\n", upload.Filename, doc.ID)
		accepted = append(accepted, doc.ID)
	}

	if !ingestWait {
		cmd.Printf("\nQueued %d document(s). Check progress with 'evidentia status'.\n", len(accepted))
		return nil
	}

	return waitForIngestion(cmd, ctx, tc, accepted)
}

// waitForIngestion polls until every document reaches a terminal state.
func waitForIngestion(cmd *cobra.Command, ctx context.Context, tc domain.TenantContext, documentIDs []string) error {
	cmd.Println()

	remaining := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		remaining[id] = true
	}

	var failed int
	for len(remaining) > 0 {
		time.Sleep(ingestPollInterval)

		for id := range remaining {
			status, err := ingestService.Status(ctx, tc, id)
			if err != nil {
				return fmt.Errorf("checking status of %s: %w", id, err)
			}

			switch status.State {
			case domain.IngestionCompleted:
				cmd.Printf("Document %s completed (%d chunks)\n", id, status.ChunksCreated)
				delete(remaining, id)
			case domain.IngestionFailed:
				cmd.Printf("Document %s failed: %s\n", id, status.ErrorMessage)
				delete(remaining, id)
				failed++
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed to ingest", failed)
	}

	cmd.Printf("\nAll %d document(s) ingested.\n", len(documentIDs))
	return nil
}
