package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestEmbeddingService_Embed(t *testing.T) {
	s := NewEmbeddingService(Config{Dimensions: 256})
	ctx := context.Background()

	t.Run("unit length", func(t *testing.T) {
		v, err := s.Embed(ctx, "the quick brown fox")
		require.NoError(t, err)
		require.Len(t, v, 256)
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, _ := s.Embed(ctx, "Cats purr softly")
		b, _ := s.Embed(ctx, "Cats purr softly")
		assert.Equal(t, a, b)
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		a, _ := s.Embed(ctx, "Hello, World!")
		b, _ := s.Embed(ctx, "hello world")
		assert.InDelta(t, 1.0, cosine(a, b), 1e-6)
	})

	t.Run("shared vocabulary scores higher", func(t *testing.T) {
		q, _ := s.Embed(ctx, "feeding the cat")
		near, _ := s.Embed(ctx, "how often to feed the cat each day")
		far, _ := s.Embed(ctx, "quarterly revenue grew in europe")
		assert.Greater(t, cosine(q, near), cosine(q, far))
	})

	t.Run("empty text is the zero vector", func(t *testing.T) {
		v, err := s.Embed(ctx, "  ...  ")
		require.NoError(t, err)
		for _, x := range v {
			assert.Equal(t, float32(0), x)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Embed(cctx, "text")
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	s := NewEmbeddingService(Config{Dimensions: 64})
	ctx := context.Background()

	out, err := s.EmbedBatch(ctx, []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	single, _ := s.Embed(ctx, "two")
	assert.Equal(t, single, out[1])
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"don", "t", "panic", "42"}, Tokenize("Don't PANIC: 42!"))
	assert.Empty(t, Tokenize(""))
	assert.Equal(t, []string{"héllo", "wörld"}, Tokenize("Héllo Wörld"))
}
