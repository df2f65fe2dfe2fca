package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore(t *testing.T) {
	t.Run("uses config.toml in the given directory", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewConfigStore(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	})

	t.Run("creates nested directories", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "deep")
		_, err := NewConfigStore(dir)
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("fails on corrupted file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[[[ not toml"), 0600))
		_, err := NewConfigStore(dir)
		assert.Error(t, err)
	})

	t.Run("fails when directory cannot be created", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0600))
		_, err := NewConfigStore(filepath.Join(file, "sub"))
		assert.Error(t, err)
	})
}

func TestDefaultConfigDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}
	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ragstore"), dir)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("chunk.size", 800))
	require.NoError(t, store.Set("embedding.requests_per_second", 2.5))
	require.NoError(t, store.Set("watch.enabled", true))

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, 800, store.GetInt("chunk.size"))
	assert.Equal(t, 2.5, store.GetFloat("embedding.requests_per_second"))
	assert.Equal(t, 800.0, store.GetFloat("chunk.size"))
	assert.True(t, store.GetBool("watch.enabled"))

	t.Run("wrong types yield zero values", func(t *testing.T) {
		assert.Equal(t, "", store.GetString("chunk.size"))
		assert.Equal(t, 0, store.GetInt("embedding.provider"))
		assert.Equal(t, 0.0, store.GetFloat("embedding.provider"))
		assert.False(t, store.GetBool("embedding.provider"))
	})

	t.Run("missing keys yield zero values", func(t *testing.T) {
		_, ok := store.Get("missing")
		assert.False(t, ok)
		assert.Equal(t, "", store.GetString("missing"))
		assert.Equal(t, 0, store.GetInt("missing"))
		assert.Equal(t, 0.0, store.GetFloat("missing"))
		assert.False(t, store.GetBool("missing"))
	})
}

func TestConfigStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("index.metric", "l2"))
	require.NoError(t, store.Set("chunk.size", 500))
	require.NoError(t, store.Set("retrieve.min_score", 0.25))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "l2", reopened.GetString("index.metric"))
	assert.Equal(t, 500, reopened.GetInt("chunk.size"))
	assert.Equal(t, 0.25, reopened.GetFloat("retrieve.min_score"))
	assert.Equal(t, []string{"chunk.size", "index.metric", "retrieve.min_score"}, reopened.Keys())
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("embedding.model", "text-embedding-3-small"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[embedding]"), string(data))
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[index]
dir = "/var/lib/ragstore"
metric = "dot"

[chunk]
unit = "words"
size = 400
overlap = 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ragstore", store.GetString("index.dir"))
	assert.Equal(t, "dot", store.GetString("index.metric"))
	assert.Equal(t, "words", store.GetString("chunk.unit"))
	assert.Equal(t, 400, store.GetInt("chunk.size"))
	assert.Equal(t, 50, store.GetInt("chunk.overlap"))
}

func TestConfigStore_Unset(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.api_key", "sk-test"))
	require.NoError(t, store.Unset("embedding.api_key"))
	require.NoError(t, store.Unset("never.set"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := reopened.Get("embedding.api_key")
	assert.False(t, ok)
}

func TestConfigStore_SetUnmarshallableValue(t *testing.T) {
	store := newTestConfigStore(t)

	err := store.Set("channel", make(chan int))
	assert.Error(t, err)

	_, ok := store.Get("channel")
	assert.False(t, ok, "failed set is rolled back")
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("k", "v"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestConfigStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("concurrent.key", n)
			_ = store.GetInt("concurrent.key")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("concurrent.key")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a":     1,
		"a.b":   2,
		"x.y.z": "deep",
		"x.w":   true,
	})

	assert.Equal(t, 1, nested["a"])
	assert.Equal(t, 2, nested["a.b"], "conflicting key stays flat")
	x := nested["x"].(map[string]any)
	assert.Equal(t, true, x["w"])
	assert.Equal(t, "deep", x["y"].(map[string]any)["z"])

	assert.Equal(t, map[string]any{"a": 1, "a.b": 2, "x.y.z": "deep", "x.w": true}, flattenMap(nested, ""))
}
