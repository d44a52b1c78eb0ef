// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: Document and chunk persistence
//   - StatusStore: Ingestion progress persistence
//   - LexicalIndex: BM25 keyword search over chunk text (FTS5)
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Chunk rows and their FTS5 counterparts are written
// together inside transactions so keyword search never sees partial documents.
//
// # Data Location
//
// By default, the database is stored at ~/.evidentia/data/evidentia.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
