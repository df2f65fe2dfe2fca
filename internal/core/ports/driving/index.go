package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// IndexService owns the lifecycle of the persisted index.
// Mutations are serialised; readers never observe a partial write.
type IndexService interface {
	// Build replaces the index with one built from docs.
	// On any failure the previously persisted index is left untouched.
	Build(ctx context.Context, docs []domain.Document, opts domain.BuildOptions) (*domain.BuildReport, error)

	// IngestIncremental adds new and changed documents to the existing index.
	// Unchanged documents are skipped; superseded chunks are retracted.
	IngestIncremental(ctx context.Context, docs []domain.Document, opts domain.IngestOptions) (*domain.IngestReport, error)

	// Remove retracts the given documents. Unknown ids fail with ErrNotFound.
	Remove(ctx context.Context, ids []string, opts domain.IngestOptions) (*domain.IngestReport, error)

	// Compact rewrites the index without retracted vectors.
	Compact(ctx context.Context, opts domain.IngestOptions) (*domain.IngestReport, error)

	// CheckHealth inspects the persisted index without modifying it.
	CheckHealth(ctx context.Context) (*domain.HealthReport, error)

	// Reset deletes the persisted index. A missing index is not an error.
	Reset(ctx context.Context) error

	// Documents returns the document registry.
	Documents(ctx context.Context) ([]domain.DocumentRecord, error)

	// Manifest returns the manifest of the current index.
	Manifest(ctx context.Context) (*domain.Manifest, error)
}
