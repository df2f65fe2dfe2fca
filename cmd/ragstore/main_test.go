package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/services"
)

// execute runs the CLI the way main does, with args in place of os.Args.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"ragstore"}, args...)
	t.Cleanup(func() { os.Args = old })

	return cli.Execute(context.Background(), cli.Wiring{
		Settings: openSettings,
		Pipeline: openPipeline,
	}, "test")
}

func buildLocalIndex(t *testing.T, dataDir string) {
	t.Helper()
	settings := domain.DefaultAppSettings()
	settings.Index.Dir = dataDir

	p, err := openPipeline(context.Background(), &settings)
	require.NoError(t, err)
	defer func() { require.NoError(t, p.Close()) }()

	_, err = p.Index.Build(context.Background(), []domain.Document{
		domain.NewDocument("a.txt", "a.txt", "alpha bravo charlie"),
	}, domain.BuildOptions{})
	require.NoError(t, err)
}

func configureOpenAIWithoutKey(t *testing.T, configDir, dataDir string) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")

	store, err := file.NewConfigStore(configDir)
	require.NoError(t, err)
	require.NoError(t, store.Set(services.KeyEmbedProvider, string(domain.ProviderOpenAI)))
	require.NoError(t, store.Set(services.KeyEmbedModel, "text-embedding-3-small"))
	require.NoError(t, store.Set(services.KeyIndexDir, dataDir))
}

func TestOpenPipeline_OpenAIWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	settings := domain.DefaultAppSettings()
	settings.Index.Dir = t.TempDir()
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.ProviderOpenAI,
		Model:    "text-embedding-3-small",
	}

	p, err := openPipeline(context.Background(), &settings)
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Close()) }()

	assert.Equal(t, "text-embedding-3-small", p.Embedder.ModelName())
	assert.Equal(t, 1536, p.Embedder.Dimensions())

	err = p.Embedder.Ping(context.Background())
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "requires an API key")

	report, err := p.Index.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMissing, report.Status())

	require.NoError(t, p.Index.Reset(context.Background()))
}

func TestCLI_ResetWithUnconfiguredOpenAI(t *testing.T) {
	configDir, dataDir := t.TempDir(), t.TempDir()
	buildLocalIndex(t, dataDir)
	configureOpenAIWithoutKey(t, configDir, dataDir)

	indexDir := filepath.Join(dataDir, services.IndexDirName)
	require.DirExists(t, indexDir)

	require.NoError(t, execute(t, "--config-dir", configDir, "reset", "--yes"))
	assert.NoDirExists(t, indexDir)
}

func TestCLI_CheckWithUnconfiguredOpenAI(t *testing.T) {
	configDir, dataDir := t.TempDir(), t.TempDir()
	buildLocalIndex(t, dataDir)
	configureOpenAIWithoutKey(t, configDir, dataDir)

	// The index was built by the local embedder, so the health check reports a mismatch
	// instead of failing on the missing key.
	err := execute(t, "--config-dir", configDir, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(domain.StatusMismatch))
	assert.NotContains(t, err.Error(), "API key")
}

func TestCLI_BuildWithUnconfiguredOpenAI(t *testing.T) {
	configDir, dataDir := t.TempDir(), t.TempDir()
	configureOpenAIWithoutKey(t, configDir, dataDir)

	err := execute(t, "--config-dir", configDir, "build", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "requires an API key")
}
