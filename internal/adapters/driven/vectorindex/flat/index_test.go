package flat

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vec/search"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func newTestIndex(t *testing.T, metric domain.Metric) *Index {
	t.Helper()
	idx, err := New(3, metric)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(),
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
			{0, 0, 1},
		},
		[]string{"x", "y", "x-ish", "z"},
	))
	return idx
}

func TestNew(t *testing.T) {
	t.Run("rejects zero dimensions", func(t *testing.T) {
		_, err := New(0, domain.MetricCosine)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	})

	t.Run("rejects oversized dimensions", func(t *testing.T) {
		_, err := New(MaxDimensions+1, domain.MetricCosine)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	})

	t.Run("rejects unknown metric", func(t *testing.T) {
		_, err := New(3, "manhattan")
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	})

	t.Run("factory returns empty index", func(t *testing.T) {
		idx, err := Factory(8, domain.MetricL2)
		require.NoError(t, err)
		assert.Equal(t, 0, idx.Size())
		assert.Equal(t, 8, idx.Dimensions())
		assert.Equal(t, domain.MetricL2, idx.Metric())
	})
}

func TestIndex_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("arity mismatch adds nothing", func(t *testing.T) {
		idx, _ := New(2, domain.MetricCosine)
		err := idx.Add(ctx, [][]float32{{1, 0}, {0, 1}}, []string{"a"})
		assert.ErrorIs(t, err, domain.ErrArityMismatch)
		assert.Equal(t, 0, idx.Size())
	})

	t.Run("dimension mismatch adds nothing", func(t *testing.T) {
		idx, _ := New(2, domain.MetricCosine)
		err := idx.Add(ctx, [][]float32{{1, 0}, {0, 1, 0}}, []string{"a", "b"})
		assert.ErrorIs(t, err, domain.ErrEmbedderMismatch)
		assert.Equal(t, 0, idx.Size())
	})

	t.Run("positions follow insertion order", func(t *testing.T) {
		idx := newTestIndex(t, domain.MetricCosine)
		assert.Equal(t, 4, idx.Size())
		assert.Equal(t, []string{"x", "y", "x-ish", "z"}, idx.IDs())
	})

	t.Run("stores a copy", func(t *testing.T) {
		idx, _ := New(2, domain.MetricCosine)
		v := []float32{1, 2}
		require.NoError(t, idx.Add(ctx, [][]float32{v}, []string{"a"}))
		v[0] = 99

		got, err := idx.Vector(0)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, got)
	})
}

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("cosine ranks nearest first", func(t *testing.T) {
		idx := newTestIndex(t, domain.MetricCosine)
		hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "x", hits[0].ID)
		assert.Equal(t, 0, hits[0].Position)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		assert.Equal(t, "x-ish", hits[1].ID)
		assert.Greater(t, hits[0].Score, hits[1].Score)
	})

	t.Run("l2 scores are negated distances", func(t *testing.T) {
		idx := newTestIndex(t, domain.MetricL2)
		hits, err := idx.Search(ctx, []float32{0, 0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "z", hits[0].ID)
		assert.InDelta(t, 0.0, hits[0].Score, 1e-6)
	})

	t.Run("dot product", func(t *testing.T) {
		idx := newTestIndex(t, domain.MetricDot)
		hits, err := idx.Search(ctx, []float32{0, 2, 0}, 1)
		require.NoError(t, err)
		assert.Equal(t, "y", hits[0].ID)
		assert.InDelta(t, 2.0, hits[0].Score, 1e-6)
	})

	t.Run("k larger than size is clamped", func(t *testing.T) {
		idx := newTestIndex(t, domain.MetricCosine)
		hits, err := idx.Search(ctx, []float32{1, 1, 1}, 100)
		require.NoError(t, err)
		assert.Len(t, hits, 4)
	})

	t.Run("non-positive k is invalid", func(t *testing.T) {
		idx := newTestIndex(t, domain.MetricCosine)
		_, err := idx.Search(ctx, []float32{1, 0, 0}, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		idx := newTestIndex(t, domain.MetricCosine)
		_, err := idx.Search(ctx, []float32{1, 0}, 1)
		assert.ErrorIs(t, err, domain.ErrEmbedderMismatch)
	})

	t.Run("cosine matches the reference distance", func(t *testing.T) {
		idx, err := New(5, domain.MetricCosine)
		require.NoError(t, err)
		stored := [][]float32{
			{0.3, -1.2, 4, 0.5, 2},
			{-3, 0.25, 1, 1, -0.75},
		}
		require.NoError(t, idx.Add(ctx, stored, []string{"p", "q"}))

		query := []float32{1.5, 0.5, -2, 3, 0.1}
		hits, err := idx.Search(ctx, query, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			want := 1 - float64(search.Float32s(query).CosineDistance(stored[h.Position]))
			assert.InDelta(t, want, h.Score, 1e-5, h.ID)
		}
	})

	t.Run("zero query vector scores zero under cosine", func(t *testing.T) {
		idx := newTestIndex(t, domain.MetricCosine)
		hits, err := idx.Search(ctx, []float32{0, 0, 0}, 4)
		require.NoError(t, err)
		for i, h := range hits {
			assert.Equal(t, 0.0, h.Score)
			assert.Equal(t, i, h.Position, "ties keep position order")
		}
	})

	t.Run("empty index returns no hits", func(t *testing.T) {
		idx, _ := New(3, domain.MetricCosine)
		hits, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestIndex_Vector(t *testing.T) {
	idx := newTestIndex(t, domain.MetricCosine)

	v, err := idx.Vector(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, v)

	_, err = idx.Vector(4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = idx.Vector(-1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.idx")

	for _, metric := range domain.AllMetrics() {
		t.Run(string(metric), func(t *testing.T) {
			idx := newTestIndex(t, metric)
			require.NoError(t, idx.Save(path))

			loaded, err := Open(path)
			require.NoError(t, err)

			assert.Equal(t, idx.Size(), loaded.Size())
			assert.Equal(t, idx.Dimensions(), loaded.Dimensions())
			assert.Equal(t, metric, loaded.Metric())
			assert.Equal(t, idx.IDs(), loaded.IDs())

			query := []float32{0.5, 0.4, 0.1}
			before, err := idx.Search(ctx, query, 4)
			require.NoError(t, err)
			after, err := loaded.Search(ctx, query, 4)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestIndex_SaveLoad_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.idx")
	idx, _ := New(5, domain.MetricCosine)
	require.NoError(t, idx.Save(path))

	loaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Size())
	assert.Equal(t, 5, loaded.Dimensions())
}

func TestIndex_Load_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "missing.idx"))
		assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	})

	t.Run("garbage", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.idx")
		require.NoError(t, os.WriteFile(path, []byte("not an index at all"), 0o600))
		_, err := Open(path)
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	})

	t.Run("truncated", func(t *testing.T) {
		good := filepath.Join(dir, "good.idx")
		require.NoError(t, newTestIndex(t, domain.MetricCosine).Save(good))
		data, err := os.ReadFile(good)
		require.NoError(t, err)

		path := filepath.Join(dir, "truncated.idx")
		require.NoError(t, os.WriteFile(path, data[:len(data)-9], 0o600))
		_, err = Open(path)
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	})

	t.Run("flipped byte", func(t *testing.T) {
		good := filepath.Join(dir, "good2.idx")
		require.NoError(t, newTestIndex(t, domain.MetricCosine).Save(good))
		data, err := os.ReadFile(good)
		require.NoError(t, err)
		data[20] ^= 0xFF

		path := filepath.Join(dir, "flipped.idx")
		require.NoError(t, os.WriteFile(path, data, 0o600))
		_, err = Open(path)
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	})
}

// writeHeader writes a checksummed index file holding only a header.
func writeHeader(t *testing.T, path string, dims, count uint32) {
	t.Helper()
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString(fileMagic)
	require.NoError(t, binary.Write(&buf, le, fileVersion))
	metric := string(domain.MetricCosine)
	require.NoError(t, binary.Write(&buf, le, uint16(len(metric))))
	buf.WriteString(metric)
	require.NoError(t, binary.Write(&buf, le, dims))
	require.NoError(t, binary.Write(&buf, le, count))
	require.NoError(t, binary.Write(&buf, le, crc32.ChecksumIEEE(buf.Bytes())))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestIndex_Load_OversizedDimensions(t *testing.T) {
	dir := t.TempDir()

	t.Run("huge dimensions with no vectors", func(t *testing.T) {
		path := filepath.Join(dir, "huge.idx")
		writeHeader(t, path, math.MaxUint32, 0)

		_, err := Open(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
		assert.Equal(t, domain.KindIndexCorrupt, domain.KindOf(err))
	})

	t.Run("dimensions larger than a one vector file", func(t *testing.T) {
		path := filepath.Join(dir, "short.idx")
		writeHeader(t, path, 1024, 1)

		_, err := Open(path)
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	})

	t.Run("empty index with realistic dimensions", func(t *testing.T) {
		path := filepath.Join(dir, "empty.idx")
		writeHeader(t, path, 1536, 0)

		idx, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, 1536, idx.Dimensions())
		assert.Zero(t, idx.Size())
	})
}

func TestIndex_Save_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, newTestIndex(t, domain.MetricCosine).Save(filepath.Join(dir, "vectors.idx")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "vectors.idx", entries[0].Name())
}
