package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// RetrievalService answers similarity queries against the current index.
type RetrievalService interface {
	// Retrieve embeds query and returns the nearest live chunks, best first.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.RetrievedChunk, error)
}
