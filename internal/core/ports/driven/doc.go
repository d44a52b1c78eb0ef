// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document and chunk persistence
//   - StatusStore: Ingestion status persistence
//   - ObjectStore: Original upload bytes (MinIO or filesystem)
//   - Normaliser: Extracts text from an upload
//   - Chunker: Splits extracted text into citable chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Tenant-partitioned vector storage and search (Qdrant)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LexicalIndex: BM25 keyword search. Without it, hybrid mode is disabled.
//   - GenerationService: Grounded answers. Without it, retrieval results are
//     returned without an answer.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
