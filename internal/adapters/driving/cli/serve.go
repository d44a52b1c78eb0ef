package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/adapters/driving/httpapi"
	"github.com/evidentia-labs/evidentia/internal/adapters/driving/watcher"
	"github.com/evidentia-labs/evidentia/internal/config"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/logger"
)

// serveShutdownTimeout bounds how long in-flight requests may drain.
const serveShutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Runs the HTTP API server for uploads, search, answers and document
management. Requests authenticate with a tenant token and only ever see
that tenant's evidence.

Drop folders configured under [watch] are monitored while the server
runs; files placed there are ingested for their folder's tenant.

The server stops cleanly on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides the configured host:port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestService == nil || searchService == nil || documentService == nil {
		return errors.New("services not configured")
	}

	httpCfg := httpapi.Config{}
	if cfg != nil {
		httpCfg.Addr = cfg.Server.Addr()
		httpCfg.RatePerMinute = cfg.Server.RatePerMinute
		httpCfg.RateBurst = cfg.Server.RateBurst
		httpCfg.ScoreThreshold = cfg.Search.ScoreThreshold
		httpCfg.MaxUploadBytes = int64(cfg.Ingest.MaxUploadMB) << 20
	}
	if serveAddr != "" {
		httpCfg.Addr = serveAddr
	}

	srv := httpapi.NewServer(ingestService, searchService, answerService, documentService, httpCfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg != nil && len(cfg.Watch.Folders) > 0 {
		watchCfg, err := watcherConfig(cfg.Watch)
		if err != nil {
			return err
		}

		w := watcher.New(ingestService, watchCfg)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("starting drop folder watcher: %w", err)
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stopping http server: %w", err)
	}
	return nil
}

// watcherConfig translates the [watch] config section, validating each
// folder's tenant before the watcher starts.
func watcherConfig(wc config.WatchConfig) (watcher.Config, error) {
	folders := make([]watcher.Folder, 0, len(wc.Folders))
	for _, f := range wc.Folders {
		tenant, err := domain.ParseTenantID(f.Tenant)
		if err != nil {
			return watcher.Config{}, fmt.Errorf("watch folder %s: %w", f.Path, err)
		}
		folders = append(folders, watcher.Folder{Path: f.Path, Tenant: tenant})
	}

	return watcher.Config{
		Folders:     folders,
		SettleDelay: time.Duration(wc.SettleSecs) * time.Second,
	}, nil
}
