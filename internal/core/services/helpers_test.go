package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/postprocessors/chunker"
)

// conceptEmbedder maps words onto fixed concept axes:
// 0 = cat, 1 = dog, 2 = everything else (kept small so no vector is zero).
type conceptEmbedder struct {
	model string
	dims  int

	mu        sync.Mutex
	calls     int
	failOn    int // fail the n-th EmbedBatch call; 0 never fails
	failAfter int // fail every call after the n-th; 0 never fails
}

var _ driven.EmbeddingService = (*conceptEmbedder)(nil)

func newConceptEmbedder() *conceptEmbedder {
	return &conceptEmbedder{model: "concept-v1", dims: 3}
}

var concepts = map[string]int{
	"cat": 0, "cats": 0, "feline": 0, "kitten": 0,
	"dog": 1, "dogs": 1, "bark": 1, "barks": 1, "puppy": 1,
}

func (e *conceptEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	v[e.dims-1] = 0.1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if axis, ok := concepts[w]; ok && axis < e.dims-1 {
			v[axis]++
		}
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func (e *conceptEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return e.vector(text), nil
}

func (e *conceptEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.mu.Unlock()

	if e.failOn > 0 && call == e.failOn {
		return nil, fmt.Errorf("%w: simulated failure on batch %d", domain.ErrEmbeddingUnavailable, call)
	}
	if e.failAfter > 0 && call > e.failAfter {
		return nil, fmt.Errorf("%w: simulated outage", domain.ErrEmbeddingUnavailable)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *conceptEmbedder) Dimensions() int { return e.dims }

func (e *conceptEmbedder) ModelName() string { return e.model }

func (e *conceptEmbedder) Ping(_ context.Context) error { return nil }

func (e *conceptEmbedder) Close() error { return nil }

func (e *conceptEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// failNext makes the n-th EmbedBatch call from now fail.
func (e *conceptEmbedder) failNext(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = 0
	e.failOn = n
}

func (e *conceptEmbedder) withModel(model string) *conceptEmbedder {
	return &conceptEmbedder{model: model, dims: e.dims}
}

var testChunking = domain.ChunkParams{Unit: domain.ChunkUnitChars, Size: 200, Overlap: 20}

func testConfig(dir string) IndexConfig {
	return IndexConfig{
		DataDir:        dir,
		Metric:         domain.MetricCosine,
		Chunking:       testChunking,
		EmbedBatchSize: 1,
	}
}

func newTestIndexService(t *testing.T, cfg IndexConfig, embedder driven.EmbeddingService) *IndexService {
	t.Helper()
	svc, err := NewIndexService(cfg, chunker.New(), embedder, flat.Factory, sqlite.Opener{}, file.ManifestStore{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func animalDocs() []domain.Document {
	return []domain.Document{
		domain.NewDocument("cat.txt", "/docs/cat.txt", "The cat sat on the mat."),
		domain.NewDocument("dog.txt", "/docs/dog.txt", "Dogs bark loudly."),
		domain.NewDocument("quiet.txt", "/docs/quiet.txt", "Cats are quiet animals."),
	}
}
