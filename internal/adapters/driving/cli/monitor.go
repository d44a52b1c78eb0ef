package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/adapters/driving/tui"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Launch the interactive ingestion monitor",
	Long: `Launch the terminal UI that follows the tenant's ingestion pipeline.

Documents are listed with their pipeline state and refreshed every few
seconds. Failed documents can be requeued without leaving the monitor.

Controls:
  ↑/k, ↓/j - Navigate documents
  Enter    - Retry the selected failed document
  r        - Reload now
  p        - Pause refresh
  ?        - Toggle help
  q        - Quit`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	// Panic recovery keeps the stack trace visible after the
	// alternate screen is torn down.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in monitor: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if documentService == nil {
		return errors.New("document service not configured")
	}

	// The retry action calls Reindex, which needs admin.
	tc, err := tenantContext(domain.CapabilitySearch, domain.CapabilityAdmin)
	if err != nil {
		return err
	}

	ports := tui.NewPorts(tc, documentService, ingestService)

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("monitor error: %w", err)
	}

	return nil
}
