package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns chunks best first", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{
			results: []domain.RetrievedChunk{
				{ChunkID: "c1", DocumentID: "cat.txt", Sequence: 0, Start: 0, End: 23, Text: "The cat sat on the mat.", Score: 0.95},
				{ChunkID: "c2", DocumentID: "dog.txt", Sequence: 1, Start: 10, End: 27, Text: "Dogs bark loudly.", Score: 0.40},
			},
		}
		server, err := NewServer(&Ports{Retrieval: mockRetrieval}, "test")
		require.NoError(t, err)

		threshold := 0.3
		input := RetrieveInput{Query: "feline", K: 2, MinScore: &threshold}
		_, output, err := server.handleRetrieve(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "feline", mockRetrieval.query)
		assert.Equal(t, 2, mockRetrieval.opts.K)
		assert.Same(t, &threshold, mockRetrieval.opts.MinScore)

		assert.Equal(t, 2, output.Count)
		require.Len(t, output.Chunks, 2)
		assert.Equal(t, "cat.txt", output.Chunks[0].DocumentID)
		assert.Equal(t, "c1", output.Chunks[0].ChunkID)
		assert.Equal(t, 23, output.Chunks[0].End)
		assert.Equal(t, 0.95, output.Chunks[0].Score)
		assert.Equal(t, "Dogs bark loudly.", output.Chunks[1].Text)
	})

	t.Run("no chunks above threshold is not an error", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{results: []domain.RetrievedChunk{}}
		server, err := NewServer(&Ports{Retrieval: mockRetrieval}, "test")
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.NotNil(t, output.Chunks)
	})

	t.Run("empty index reports its kind", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{err: domain.ErrEmptyIndex}
		server, err := NewServer(&Ports{Retrieval: mockRetrieval}, "test")
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "test"})

		require.ErrorIs(t, err, domain.ErrEmptyIndex)
		assert.Contains(t, err.Error(), string(domain.KindEmptyIndex))
	})

	t.Run("unexpected failure is internal", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{err: errors.New("disk on fire")}
		server, err := NewServer(&Ports{Retrieval: mockRetrieval}, "test")
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "internal: disk on fire")
	})
}

func TestServer_handleCheckHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("reports status and counts", func(t *testing.T) {
		mockIndex := &mockIndexService{health: &domain.HealthReport{
			Path:            "/data/index-v1",
			Exists:          true,
			IndexFileExists: true,
			SidecarExists:   true,
			ManifestExists:  true,
			ManifestOK:      true,
			Consistent:      true,
			VectorCount:     10,
			SidecarCount:    10,
			RetractedCount:  4,
			DocumentCount:   2,
			Model:           "hash-v1",
			Dimensions:      384,
			Metric:          domain.MetricCosine,
		}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Index: mockIndex}, "test")
		require.NoError(t, err)

		_, output, err := server.handleCheckHealth(ctx, nil, HealthInput{})

		require.NoError(t, err)
		assert.Equal(t, "active", output.Status)
		assert.True(t, output.Exists)
		assert.True(t, output.ManifestOK)
		assert.Equal(t, 10, output.VectorCount)
		assert.Equal(t, 10, output.SidecarCount)
		assert.Equal(t, 6, output.LiveCount)
		assert.Equal(t, 4, output.RetractedCount)
		assert.Equal(t, "cosine", output.Metric)
		assert.NotNil(t, output.Problems)
	})

	t.Run("missing index", func(t *testing.T) {
		mockIndex := &mockIndexService{health: &domain.HealthReport{Path: "/data/index-v1", Consistent: true}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Index: mockIndex}, "test")
		require.NoError(t, err)

		_, output, err := server.handleCheckHealth(ctx, nil, HealthInput{})

		require.NoError(t, err)
		assert.Equal(t, "missing", output.Status)
		assert.False(t, output.Exists)
		assert.False(t, output.ManifestOK)
		assert.Zero(t, output.SidecarCount)
	})

	t.Run("embedder mismatch", func(t *testing.T) {
		mockIndex := &mockIndexService{health: &domain.HealthReport{
			Path:            "/data/index-v1",
			Exists:          true,
			IndexFileExists: true,
			SidecarExists:   true,
			ManifestExists:  true,
			Consistent:      true,
			VectorCount:     3,
			SidecarCount:    3,
			Problems:        []string{"embedder mismatch"},
		}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Index: mockIndex}, "test")
		require.NoError(t, err)

		_, output, err := server.handleCheckHealth(ctx, nil, HealthInput{})

		require.NoError(t, err)
		assert.Equal(t, "mismatch", output.Status)
		assert.True(t, output.Exists)
		assert.False(t, output.ManifestOK)
		assert.Equal(t, 3, output.SidecarCount)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		mockIndex := &mockIndexService{err: domain.ErrIndexBusy}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Index: mockIndex}, "test")
		require.NoError(t, err)

		_, _, err = server.handleCheckHealth(ctx, nil, HealthInput{})

		require.ErrorIs(t, err, domain.ErrIndexBusy)
		assert.Contains(t, err.Error(), "index_busy")
	})
}
