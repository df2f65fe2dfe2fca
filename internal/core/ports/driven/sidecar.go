package driven

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// SidecarStore persists the position-aligned chunk entries and the document registry.
type SidecarStore interface {
	// Replace overwrites all entries and documents in one transaction.
	Replace(ctx context.Context, entries []domain.IndexEntry, docs []domain.DocumentRecord) error

	// Entries returns all entries ordered by position.
	Entries(ctx context.Context) ([]domain.IndexEntry, error)

	// Documents returns the registry ordered by id.
	Documents(ctx context.Context) ([]domain.DocumentRecord, error)

	// Counts returns the number of entries and how many are retracted.
	Counts(ctx context.Context) (total, retracted int, err error)

	// ChunkCounts returns live chunk counts per document.
	ChunkCounts(ctx context.Context) (map[string]int, error)

	// Close releases the database handle.
	Close() error
}

// SidecarOpener opens sidecar databases by path.
type SidecarOpener interface {
	// Create creates a new, empty sidecar at path with the schema applied.
	Create(ctx context.Context, path string) (SidecarStore, error)

	// Open opens an existing sidecar read-only.
	// A missing file fails with ErrIndexNotFound; an unreadable one with ErrIndexCorrupt.
	Open(ctx context.Context, path string) (SidecarStore, error)
}

// ManifestStore reads and writes index manifests.
type ManifestStore interface {
	// Read parses the manifest at path.
	// A missing file fails with ErrIndexNotFound; an unreadable one with ErrIndexCorrupt.
	Read(path string) (*domain.Manifest, error)

	// Write stores the manifest at path atomically.
	Write(path string, m domain.Manifest) error
}
