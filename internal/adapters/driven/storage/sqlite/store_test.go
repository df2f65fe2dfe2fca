package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// setupTestStore creates a writable sidecar in a temporary directory.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sidecar.db")
	store, err := NewStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, path
}

func testEntries() []domain.IndexEntry {
	return []domain.IndexEntry{
		{Position: 0, Chunk: domain.Chunk{ID: "c0", DocumentID: "a", Content: "alpha", Sequence: 0, Start: 0, End: 5}},
		{Position: 1, Chunk: domain.Chunk{ID: "c1", DocumentID: "a", Content: "beta", Sequence: 1, Start: 4, End: 8}},
		{Position: 2, Chunk: domain.Chunk{ID: "c2", DocumentID: "b", Content: "gamma", Sequence: 0, Start: 0, End: 5}, Retracted: true},
		{Position: 3, Chunk: domain.Chunk{ID: "c3", DocumentID: "b", Content: "delta", Sequence: 0, Start: 0, End: 5}},
	}
}

func testDocuments() []domain.DocumentRecord {
	now := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	return []domain.DocumentRecord{
		{ID: "b", URI: "file:///b.txt", Hash: "hb", Chunks: 1, IngestedAt: now},
		{ID: "a", URI: "file:///a.txt", Hash: "ha", Chunks: 2, IngestedAt: now},
	}
}

func TestNewStore(t *testing.T) {
	store, path := setupTestStore(t)

	assert.Equal(t, path, store.Path())
	_, err := os.Stat(path)
	assert.NoError(t, err)

	total, retracted, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, retracted)
}

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, path := setupTestStore(t)
	require.NoError(t, store.Replace(ctx, testEntries(), testDocuments()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	total, _, err := reopened.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestStore_ReplaceAndRead(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	require.NoError(t, store.Replace(ctx, testEntries(), testDocuments()))

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, testEntries(), entries)

	docs, err := store.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID, "ordered by id")
	assert.Equal(t, "ha", docs[0].Hash)
	assert.Equal(t, 2, docs[0].Chunks)
	assert.True(t, testDocuments()[1].IngestedAt.Equal(docs[0].IngestedAt))

	total, retracted, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, retracted)

	counts, err := store.ChunkCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, counts)
}

func TestStore_ReplaceOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	require.NoError(t, store.Replace(ctx, testEntries(), testDocuments()))
	require.NoError(t, store.Replace(ctx, testEntries()[:1], testDocuments()[1:]))

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	docs, err := store.Documents(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_ReplaceRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)
	require.NoError(t, store.Replace(ctx, testEntries(), testDocuments()))

	dup := testEntries()
	dup[1].Position = 0
	err := store.Replace(ctx, dup, nil)
	require.Error(t, err)

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "previous contents survive a failed replace")
}

func TestOpenReadOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("reads existing sidecar", func(t *testing.T) {
		store, path := setupTestStore(t)
		require.NoError(t, store.Replace(ctx, testEntries(), testDocuments()))
		require.NoError(t, store.Close())

		ro, err := OpenReadOnly(ctx, path)
		require.NoError(t, err)
		defer ro.Close()

		entries, err := ro.Entries(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 4)

		err = ro.Replace(ctx, nil, nil)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.db")
		_, err := OpenReadOnly(ctx, path)
		assert.ErrorIs(t, err, domain.ErrIndexNotFound)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "open must not create the file")
	})

	t.Run("garbage file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sidecar.db")
		require.NoError(t, os.WriteFile(path, []byte("this is not a database, just some bytes padding it out"), 0o600))

		_, err := OpenReadOnly(ctx, path)
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := OpenReadOnly(ctx, t.TempDir())
		assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	})
}

func TestOpener(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sidecar.db")

	created, err := Opener{}.Create(ctx, path)
	require.NoError(t, err)
	require.NoError(t, created.Replace(ctx, testEntries(), testDocuments()))
	require.NoError(t, created.Close())

	opened, err := Opener{}.Open(ctx, path)
	require.NoError(t, err)
	defer opened.Close()

	total, retracted, err := opened.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, retracted)
}
