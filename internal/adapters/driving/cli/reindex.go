package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex [document-id]...",
	Short: "Re-run ingestion from stored bytes",
	Long: `Queues documents for re-ingestion from their stored original bytes.
Without arguments every document of the tenant is queued.

Use this after changing the embedding model or chunking settings, or to
retry failed documents.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	tc, err := tenantContext(domain.CapabilityAdmin)
	if err != nil {
		return err
	}

	queued, err := ingestService.Reindex(context.Background(), tc, args)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Queued %d document(s) for re-indexing.\n", queued)
	return nil
}
