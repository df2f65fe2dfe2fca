package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the index location, chunking, embedding provider,
retrieval defaults, and watch behaviour.

Changes to index.metric, chunk.*, or the embedding model take effect on the
next build. An existing index keeps the parameters recorded in its manifest.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Set a single setting. An empty value restores the default.

Keys:
  index.dir, index.metric (cosine, l2, dot)
  chunk.unit (chars, words), chunk.size, chunk.overlap
  embedding.provider (local, ollama, openai), embedding.model,
  embedding.base_url, embedding.api_key, embedding.dimensions,
  embedding.batch_size, embedding.concurrency, embedding.requests_per_second
  retrieve.top_k, retrieve.min_score
  watch.debounce (e.g. 500ms)`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively select the embedding provider and model, then check it responds.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsEmbedding,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Current Settings")
	fmt.Fprintln(out, "================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "[Index]")
	fmt.Fprintf(out, "  Directory: %s\n", settings.Index.Dir)
	fmt.Fprintf(out, "  Metric: %s\n", settings.Index.Metric)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "[Chunking]")
	fmt.Fprintf(out, "  Unit: %s\n", settings.Index.Chunking.Unit)
	fmt.Fprintf(out, "  Size: %d\n", settings.Index.Chunking.Size)
	fmt.Fprintf(out, "  Overlap: %d\n", settings.Index.Chunking.Overlap)
	fmt.Fprintln(out)

	emb := settings.Embedding
	fmt.Fprintln(out, "[Embedding]")
	fmt.Fprintf(out, "  Provider: %s\n", emb.Provider.Description())
	fmt.Fprintf(out, "  Model: %s\n", emb.Model)
	if emb.Dimensions > 0 {
		fmt.Fprintf(out, "  Dimensions: %d\n", emb.Dimensions)
	}
	if emb.BaseURL != "" {
		fmt.Fprintf(out, "  Base URL: %s\n", emb.BaseURL)
	}
	if emb.Provider.RequiresAPIKey() {
		if emb.APIKey != "" {
			fmt.Fprintf(out, "  API Key: %s\n", maskAPIKey(emb.APIKey))
		} else {
			fmt.Fprintln(out, "  API Key: (not set)")
		}
	}
	fmt.Fprintf(out, "  Batch size: %d\n", emb.BatchSize)
	fmt.Fprintf(out, "  Concurrency: %d\n", emb.Concurrency)
	if emb.RequestsPerSecond > 0 {
		fmt.Fprintf(out, "  Rate limit: %g req/s\n", emb.RequestsPerSecond)
	}
	status := "configured"
	if !emb.IsConfigured() {
		status = "not configured"
	}
	fmt.Fprintf(out, "  Status: %s\n", status)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "[Retrieve]")
	fmt.Fprintf(out, "  Top K: %d\n", settings.Retrieve.TopK)
	if settings.Retrieve.MinScore != nil {
		fmt.Fprintf(out, "  Min score: %g\n", *settings.Retrieve.MinScore)
	} else {
		fmt.Fprintln(out, "  Min score: (none)")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "[Watch]")
	fmt.Fprintf(out, "  Debounce: %s\n", settings.Watch.Debounce)
	fmt.Fprintln(out)

	if err := settingsService.Validate(); err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
		fmt.Fprintln(out, "Run 'ragstore settings embedding' to fix configuration issues.")
	} else {
		fmt.Fprintln(out, "Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.SetValue(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if value == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s reset to default\n", key)
		return nil
	}
	if strings.HasSuffix(key, "api_key") {
		value = maskAPIKey(value)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		fmt.Fprintf(out, "  %d. %s\n", i+1, p.Description())
	}
	fmt.Fprint(out, "\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selectedProvider]
	fmt.Fprintf(out, "Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		fmt.Fprint(out, "Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		fmt.Fprintln(out)
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	fmt.Fprint(out, "Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		fmt.Fprintf(out, "FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	fmt.Fprintln(out, "OK")

	fmt.Fprintf(out, "Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	fmt.Fprintln(out, "Run 'ragstore build <dir>' to rebuild the index with the new embedder.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
