// Package domain defines the core business entities for ragstore.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Source text with a content hash
//   - Chunk: A bounded, deterministically identified slice of a document
//   - IndexEntry: The sidecar record pairing an index position with a chunk
//   - Manifest: The parameters an index was built with
//   - HealthReport: The read-only view of the on-disk index triad
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
