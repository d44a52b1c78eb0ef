// Package driving defines interfaces that external actors (HTTP API,
// CLI, MCP, TUI) use to interact with core services. These are the
// "driving" ports in hexagonal architecture terminology - they drive
// the application.
//
// Every operation takes a domain.TenantContext built once at the
// boundary; nothing below this layer re-derives tenant identity.
//
// Implementations of these interfaces live in internal/core/services.
package driving
