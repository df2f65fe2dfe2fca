// Command ragstore builds and queries a local vector index for retrieval-augmented generation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragstore/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragstore/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragstore/internal/connectors/filesystem"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/core/services"
	"github.com/custodia-labs/ragstore/internal/logger"
	"github.com/custodia-labs/ragstore/internal/normalisers"
	"github.com/custodia-labs/ragstore/internal/postprocessors/chunker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A .env file next to the working directory may carry OPENAI_API_KEY.
	_ = godotenv.Load() //nolint:errcheck // the file is optional

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := cli.Wiring{
		Settings: openSettings,
		Pipeline: openPipeline,
	}
	if err := cli.Execute(ctx, w, version); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above
	}
}

func openSettings(configDir string) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store, ai.NewConfigValidator()), nil
}

func openPipeline(_ context.Context, settings *domain.AppSettings) (*cli.Pipeline, error) {
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		// reset and check only need the model identity; embedding commands fail at Ping.
		logger.Debug("embedder unavailable: %v", err)
		embedder = ai.NewUnavailableEmbeddingService(&settings.Embedding, err)
	}

	index, err := services.NewIndexService(services.IndexConfig{
		DataDir:        settings.Index.Dir,
		Metric:         settings.Index.Metric,
		Chunking:       settings.Index.Chunking,
		EmbedBatchSize: settings.Embedding.BatchSize,
	}, chunker.New(), embedder, flat.Factory, sqlite.Opener{}, file.ManifestStore{})
	if err != nil {
		_ = embedder.Close() //nolint:errcheck // already failing
		return nil, err
	}

	registry := normalisers.Default()
	debounce := settings.Watch.Debounce

	return &cli.Pipeline{
		Index:     index,
		Retrieval: services.NewRetrieverService(index, embedder, settings.Retrieve),
		Embedder:  embedder,
		NewSource: func(dir string) driven.DocumentSource {
			return filesystem.New(dir, registry)
		},
		NewWatch: func(source driven.DocumentSource) driving.WatchService {
			return services.NewWatchService(source, index, debounce)
		},
		Close: func() error {
			return errors.Join(index.Close(), embedder.Close())
		},
	}, nil
}
