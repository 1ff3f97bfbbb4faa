// Package sqlite provides a SQLite-based implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database file backs:
//
//   - LeaseStore, ChunkStore, ClauseStore, KeyTermsStore, IngestionLogStore
//   - VectorIndex: brute-force cosine search over float32 blobs
//   - SearchEngine: FTS5 keyword search ranked by BM25
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Deleting a lease cascades to its chunks, clause records, key terms and
// rent steps.
//
// # Data Location
//
// By default, the database is stored at ~/.leasequery/data/leasequery.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
