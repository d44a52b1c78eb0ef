package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/adapters/driving/mcp"
	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the tenant's evidence through search and answer tools
and read-only document resources. It is bound to the tenant given with
--tenant; the assistant can never reach another tenant's evidence.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default, for Claude Desktop)
  evidentia mcp serve --tenant acme-breach-2026

  # HTTP mode (for MCP Inspector, remote access)
  evidentia mcp serve --tenant acme-breach-2026 --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "evidentia": {
        "command": "/path/to/evidentia",
        "args": ["mcp", "serve", "--tenant", "acme-breach-2026"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	// The assistant only reads; it never ingests or deletes.
	tc, err := tenantContext(domain.CapabilitySearch)
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Tenant:    tc,
		Search:    searchService,
		Answer:    answerService,
		Documents: documentService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
