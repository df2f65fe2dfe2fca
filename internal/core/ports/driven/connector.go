package driven

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// DocumentSource enumerates documents for ingestion.
type DocumentSource interface {
	// Type returns the source type identifier.
	Type() string

	// Root returns the location being indexed.
	Root() string

	// Validate checks the source is readable.
	Validate(ctx context.Context) error

	// Scan reads every supported document. Unreadable files are skipped
	// and reported through the returned warnings.
	Scan(ctx context.Context) ([]domain.Document, []error, error)

	// Watch emits change notifications until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.DocumentChange, error)

	// Close releases resources.
	Close() error
}
