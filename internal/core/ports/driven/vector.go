package driven

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// VectorIndex stores fixed-dimension vectors and answers k-nearest queries.
// Positions are assigned densely from zero in insertion order.
type VectorIndex interface {
	// Add appends vectors with their external ids. Either all are added or none.
	// Mismatched lengths fail with ErrArityMismatch; wrong dimensions with ErrEmbedderMismatch.
	Add(ctx context.Context, vectors [][]float32, ids []string) error

	// Search returns up to k hits ordered best first.
	// k larger than Size is clamped.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Size returns the number of stored vectors.
	Size() int

	// Dimensions returns the vector size.
	Dimensions() int

	// Metric returns the similarity metric.
	Metric() domain.Metric

	// IDs returns the stored ids in position order.
	IDs() []string

	// Vector returns a copy of the vector stored at position.
	Vector(position int) ([]float32, error)

	// Save writes the index to path atomically.
	Save(path string) error

	// Load replaces the index contents with the file at path.
	// A missing file fails with ErrIndexNotFound; an unreadable one with ErrIndexCorrupt.
	Load(path string) error
}

// VectorHit is a single similarity search result.
type VectorHit struct {
	// ID is the external id supplied to Add.
	ID string

	// Position is the vector's position in the index.
	Position int

	// Score is higher for closer vectors regardless of metric.
	Score float64
}

// VectorIndexFactory creates an empty index.
type VectorIndexFactory func(dimensions int, metric domain.Metric) (VectorIndex, error)
