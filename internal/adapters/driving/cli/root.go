// Package cli implements the evidentia command line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/config"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
	"github.com/evidentia-labs/evidentia/internal/logger"
)

// version is overridden by the build via SetVersion.
var version = "dev"

// Services wired in by the composition root before Execute.
var (
	ingestService   driving.IngestionService
	searchService   driving.SearchService
	answerService   driving.AnswerService
	documentService driving.DocumentService
)

// cfg and cfgPath hold the loaded configuration for commands that
// need more than the driving services (serve, config).
var (
	cfg     *config.Config
	cfgPath string
)

// Persistent flags shared by all commands.
var (
	tenantFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "evidentia",
	Short: "Tenant-isolated evidence search with grounded answers",
	Long: `Evidentia ingests engagement evidence (reports, mailbox exports, logs),
indexes it per tenant and answers questions with citations back into the
source documents.

Most commands operate within a single tenant; pass --tenant to select it.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

// Services carries the driving ports the commands depend on.
type Services struct {
	Ingest    driving.IngestionService
	Search    driving.SearchService
	Answer    driving.AnswerService
	Documents driving.DocumentService
}

// SetServices wires the driving services into the command tree.
func SetServices(s Services) {
	ingestService = s.Ingest
	searchService = s.Search
	answerService = s.Answer
	documentService = s.Documents
}

// SetConfig records the loaded configuration and the path it came from.
func SetConfig(c *config.Config, path string) {
	cfg = c
	cfgPath = path
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&tenantFlag, "tenant", "t", "", "tenant (engagement) identifier")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// tenantContext resolves the --tenant flag into a tenant context
// carrying the given capabilities.
func tenantContext(caps ...domain.Capability) (domain.TenantContext, error) {
	if tenantFlag == "" {
		return domain.TenantContext{}, errors.New("--tenant is required")
	}
	tenant, err := domain.ParseTenantID(tenantFlag)
	if err != nil {
		return domain.TenantContext{}, fmt.Errorf("invalid tenant: %w", err)
	}
	return domain.NewTenantContext(tenant, "cli", caps...), nil
}
