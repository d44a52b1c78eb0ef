package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/evidentia-labs/evidentia/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and edit the evidentia configuration file.

Non-secret settings are edited in the TOML file directly; use set-key
to store provider secrets without echoing them.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runConfigInit,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [key]",
	Short: "Store a provider secret",
	Long: `Prompts for a secret without echoing it and stores it in the
configuration file.

Known keys:
  embedding.api_key
  generation.api_key
  vector.qdrant.api_key
  storage.minio.access_key
  storage.minio.secret_key`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetKey,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetKeyCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	if cfgPath != "" {
		cmd.Printf("File: %s\n", cfgPath)
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", cfg.Server.Addr())
	cmd.Printf("  Rate limit: %d/min (burst %d)\n", cfg.Server.RatePerMinute, cfg.Server.RateBurst)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Data dir: %s\n", cfg.Storage.DataDir)
	cmd.Printf("  Blob backend: %s\n", cfg.Storage.BlobBackend)
	if cfg.Storage.BlobBackend == "minio" {
		cmd.Printf("  MinIO endpoint: %s (bucket %s)\n", cfg.Storage.Minio.Endpoint, cfg.Storage.Minio.Bucket)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", cfg.Embedding.Provider)
	cmd.Printf("  Model: %s (%d dimensions)\n", cfg.Embedding.Model, cfg.Embedding.Dimensions)
	cmd.Printf("  Base URL: %s\n", cfg.Embedding.BaseURL)
	cmd.Printf("  API Key: %s\n", describeSecret(cfg.Embedding.ResolveAPIKey()))
	cmd.Println()

	cmd.Println("[Generation]")
	if cfg.Generation.Enabled {
		cmd.Printf("  Model: %s\n", cfg.Generation.Model)
		cmd.Printf("  API Key: %s\n", describeSecret(cfg.Generation.ResolveAPIKey()))
	} else {
		cmd.Println("  Disabled (answers degrade to retrieval only)")
	}
	cmd.Println()

	cmd.Println("[Vector Index]")
	cmd.Printf("  Backend: %s\n", cfg.Vector.Backend)
	if cfg.Vector.Backend == "qdrant" {
		cmd.Printf("  URL: %s (collection %s)\n", cfg.Vector.Qdrant.URL, cfg.Vector.Qdrant.Collection)
	}
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Default top-k: %d\n", cfg.Search.DefaultTopK)
	cmd.Printf("  Lexical weight: %.2f\n", cfg.Search.LexicalWeight)
	cmd.Println()

	if len(cfg.Watch.Folders) > 0 {
		cmd.Println("[Watch]")
		for _, f := range cfg.Watch.Folders {
			cmd.Printf("  %s -> tenant %s\n", f.Path, f.Tenant)
		}
		cmd.Println()
	}

	if err := cfg.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := config.Default().Save(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	cmd.Printf("Wrote default configuration to %s\n", path)
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}
	if cfgPath == "" {
		return errors.New("no configuration file to update; run 'evidentia config init' first")
	}

	key := args[0]

	cmd.Printf("Enter value for %s: ", key)
	value := readSecret()
	cmd.Println()
	if value == "" {
		return errors.New("empty value")
	}

	if err := cfg.SetKey(key, value); err != nil {
		return err
	}

	if err := cfg.Save(cfgPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	cmd.Printf("Stored %s in %s\n", key, cfgPath)
	return nil
}

// readSecret reads a line without echoing when stdin is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(secret)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// describeSecret masks a secret for display.
func describeSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
