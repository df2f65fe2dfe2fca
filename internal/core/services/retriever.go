package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.RetrievalService = (*RetrieverService)(nil)

// snapshotSource provides the current index for reading.
type snapshotSource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// RetrieverService embeds queries and returns the nearest live chunks.
type RetrieverService struct {
	index    snapshotSource
	embedder driven.EmbeddingService
	defaults domain.RetrieveSettings
}

// NewRetrieverService creates a retriever over index.
// The embedder must be the one the index was built with.
func NewRetrieverService(
	index *IndexService, embedder driven.EmbeddingService, defaults domain.RetrieveSettings,
) *RetrieverService {
	return &RetrieverService{
		index:    index,
		embedder: embedder,
		defaults: defaults,
	}
}

// Retrieve returns up to k chunks ordered by descending score.
// An index with no live vectors fails with ErrEmptyIndex; a query whose
// results all fall below the threshold returns an empty slice.
func (r *RetrieverService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) ([]domain.RetrievedChunk, error) {
	logger.Section("Retrieve")
	logger.Debug("Query: %q", query)

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidParameter)
	}

	k := opts.K
	if k == 0 {
		k = r.defaults.TopK
	}
	if k <= 0 {
		k = domain.DefaultTopK
	}
	minScore := opts.MinScore
	if minScore == nil {
		minScore = r.defaults.MinScore
	}
	logger.Debug("k=%d, min score set=%t", k, minScore != nil)

	snap, err := r.index.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmptyIndex, err)
		}
		return nil, err
	}

	if snap.Manifest.LiveCount() == 0 {
		return nil, fmt.Errorf("%w: no live vectors in build %s", domain.ErrEmptyIndex, snap.Manifest.BuildID)
	}

	identity := domain.EmbedderIdentity{Model: r.embedder.ModelName(), Dimensions: r.embedder.Dimensions()}
	if err := snap.Manifest.CheckEmbedder(identity); err != nil {
		return nil, err
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) != snap.Manifest.Embedder.Dimensions {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, index has %d",
			domain.ErrEmbedderMismatch, len(vector), snap.Manifest.Embedder.Dimensions)
	}

	// Retracted vectors still occupy the index; widen the search so they
	// cannot crowd out live results.
	hits, err := snap.Index.Search(ctx, vector, k+snap.Manifest.RetractedCount)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Vector search: %d hits", len(hits))

	results := make([]domain.RetrievedChunk, 0, k)
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(snap.Entries) {
			return nil, fmt.Errorf("%w: hit at position %d outside sidecar", domain.ErrIndexCorrupt, hit.Position)
		}
		entry := snap.Entries[hit.Position]
		if entry.Retracted {
			continue
		}
		if minScore != nil && hit.Score < *minScore {
			continue
		}
		results = append(results, domain.RetrievedChunk{
			ChunkID:    entry.Chunk.ID,
			DocumentID: entry.Chunk.DocumentID,
			Text:       entry.Chunk.Content,
			Score:      hit.Score,
			Position:   entry.Position,
			Sequence:   entry.Chunk.Sequence,
			Start:      entry.Chunk.Start,
			End:        entry.Chunk.End,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	logger.Info("Retrieved %d chunks", len(results))
	return results, nil
}
