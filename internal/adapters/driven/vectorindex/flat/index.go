package flat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// MaxDimensions bounds the vector size of an index.
const MaxDimensions = 1 << 16

// Index stores vectors in insertion order and scans them all on search.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	metric     domain.Metric
	ids        []string
	vectors    [][]float32
	magnitudes []float32
}

// New creates an empty index.
func New(dimensions int, metric domain.Metric) (*Index, error) {
	if dimensions <= 0 || dimensions > MaxDimensions {
		return nil, fmt.Errorf("%w: dimensions must be in [1, %d], got %d", domain.ErrInvalidParameter, MaxDimensions, dimensions)
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidParameter, metric)
	}
	return &Index{dimensions: dimensions, metric: metric}, nil
}

// Factory adapts New to driven.VectorIndexFactory.
func Factory(dimensions int, metric domain.Metric) (driven.VectorIndex, error) {
	return New(dimensions, metric)
}

// Add appends vectors with their ids. The batch is validated before any vector is stored.
func (idx *Index) Add(_ context.Context, vectors [][]float32, ids []string) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("%w: %d vectors, %d ids", domain.ErrArityMismatch, len(vectors), len(ids))
	}
	for i, v := range vectors {
		if len(v) != idx.dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d",
				domain.ErrEmbedderMismatch, i, len(v), idx.dimensions)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, v := range vectors {
		stored := make([]float32, len(v))
		copy(stored, v)
		idx.vectors = append(idx.vectors, stored)
		idx.magnitudes = append(idx.magnitudes, search.Float32s(stored).Magnitude())
		idx.ids = append(idx.ids, ids[i])
	}
	return nil
}

// Search scores every stored vector against query and returns the best k.
// Ties are broken by position so results are stable across save and load.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidParameter, k)
	}
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrEmbedderMismatch, len(query), idx.dimensions)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	q := search.Float32s(query)
	qMag := q.Magnitude()

	hits := make([]driven.VectorHit, len(idx.vectors))
	for i, v := range idx.vectors {
		hits[i] = driven.VectorHit{
			ID:       idx.ids[i],
			Position: i,
			Score:    idx.score(q, qMag, v, idx.magnitudes[i]),
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (idx *Index) score(q search.Float32s, qMag float32, v []float32, vMag float32) float64 {
	switch idx.metric {
	case domain.MetricL2:
		return -float64(q.EuclideanDistance(v))
	case domain.MetricDot:
		return dot(q, v)
	default:
		if qMag == 0 || vMag == 0 {
			return 0
		}
		return dot(q, v) / (float64(qMag) * float64(vMag))
	}
}

// dot is computed in float64 to keep scores stable for long vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Size returns the number of stored vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dimensions returns the vector size.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimensions
}

// Metric returns the similarity metric.
func (idx *Index) Metric() domain.Metric {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.metric
}

// IDs returns a copy of the stored ids in position order.
func (idx *Index) IDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, len(idx.ids))
	copy(ids, idx.ids)
	return ids
}

// Vector returns a copy of the vector at position.
func (idx *Index) Vector(position int) ([]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if position < 0 || position >= len(idx.vectors) {
		return nil, fmt.Errorf("%w: position %d of %d", domain.ErrNotFound, position, len(idx.vectors))
	}
	v := make([]float32, idx.dimensions)
	copy(v, idx.vectors[position])
	return v, nil
}
