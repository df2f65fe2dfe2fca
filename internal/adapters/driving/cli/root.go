// Package cli provides the ragstore command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Pipeline bundles the services that depend on a configured embedder.
type Pipeline struct {
	Index     driving.IndexService
	Retrieval driving.RetrievalService
	Embedder  driven.EmbeddingService

	// NewSource opens a document source rooted at dir.
	NewSource func(dir string) driven.DocumentSource

	// NewWatch creates a watch loop feeding source into the index.
	NewWatch func(source driven.DocumentSource) driving.WatchService

	// Close releases the embedder and any cached index state.
	Close func() error
}

// Wiring connects the CLI to the composition root.
type Wiring struct {
	// Settings opens the settings service for a configuration directory.
	// An empty directory selects the default location.
	Settings func(configDir string) (driving.SettingsService, error)

	// Pipeline builds the index services from the current settings.
	Pipeline func(ctx context.Context, settings *domain.AppSettings) (*Pipeline, error)
}

var (
	version = "dev"

	verbose   bool
	configDir string

	wiring          Wiring
	settingsService driving.SettingsService
	pipeline        *Pipeline
)

var rootCmd = &cobra.Command{
	Use:   "ragstore",
	Short: "Local vector store for retrieval-augmented generation",
	Long: `ragstore chunks and embeds text documents into a persisted vector index
and answers similarity queries against it.

The index lives in a single directory holding the vector file, a SQLite
sidecar with chunk metadata, and a TOML manifest describing how it was built.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline details to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.ragstore)")
}

// Execute runs the root command with the given wiring.
func Execute(ctx context.Context, w Wiring, v string) error {
	wiring = w
	settingsService = nil
	if v != "" {
		version = v
	}
	defer closePipeline()
	return rootCmd.ExecuteContext(ctx)
}

func loadSettings(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if settingsService != nil || wiring.Settings == nil {
		return nil
	}

	svc, err := wiring.Settings(configDir)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	settingsService = svc
	return nil
}

// loadPipeline builds the index services on first use so that commands
// like "settings" work while the embedder is misconfigured.
func loadPipeline(cmd *cobra.Command) (*Pipeline, error) {
	if pipeline != nil {
		return pipeline, nil
	}
	if settingsService == nil || wiring.Pipeline == nil {
		return nil, errors.New("index services not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	p, err := wiring.Pipeline(cmd.Context(), settings)
	if err != nil {
		return nil, err
	}
	pipeline = p
	return p, nil
}

// pingEmbedder checks the embedder is reachable before work that needs it.
func pingEmbedder(cmd *cobra.Command, p *Pipeline) error {
	if p.Embedder == nil {
		return nil
	}
	if err := p.Embedder.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("embedder %s is not reachable: %w", p.Embedder.ModelName(), err)
	}
	return nil
}

func closePipeline() {
	if pipeline == nil || pipeline.Close == nil {
		pipeline = nil
		return
	}
	if err := pipeline.Close(); err != nil {
		logger.Warn("Closing index services: %v", err)
	}
	pipeline = nil
}
