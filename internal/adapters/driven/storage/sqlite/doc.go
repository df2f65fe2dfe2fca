// Package sqlite provides the SQLite-backed sidecar store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements driven.SidecarStore and
// driven.SidecarOpener.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
//   - entries: one row per vector, keyed by index position
//   - documents: the registry of ingested documents and content hashes
//
// # Data Location
//
// The sidecar lives next to the vector file, at <data>/index-v1/sidecar.db.
// The database uses the default rollback journal so the whole sidecar is a
// single file that can be moved with the rest of the index directory.
//
// # Thread Safety
//
// Stores opened with Open are read-only. Writes happen only on freshly
// created staging databases owned by a single writer.
package sqlite
