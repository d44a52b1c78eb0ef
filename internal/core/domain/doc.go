// Package domain defines the core business entities for Evidentia.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - TenantID / TenantContext: Validated tenant identity and capabilities
//   - Document: An uploaded evidence document with metadata
//   - Chunk: A citable unit within a document
//   - IngestionStatus: Progress of the ingestion pipeline for a document
//   - SearchResult / Citation: Retrieval output
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
