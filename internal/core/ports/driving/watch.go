package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// WatchService keeps the index in sync with a document source.
type WatchService interface {
	// Run performs an initial ingest then re-ingests after each settled burst
	// of changes until ctx is cancelled. onReport receives every ingest result.
	Run(ctx context.Context, onReport func(*domain.IngestReport, error)) error
}
