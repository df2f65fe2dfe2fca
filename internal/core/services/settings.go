package services

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyIndexDir         = "index.dir"
	KeyIndexMetric      = "index.metric"
	KeyChunkUnit        = "chunk.unit"
	KeyChunkSize        = "chunk.size"
	KeyChunkOverlap     = "chunk.overlap"
	KeyEmbedProvider    = "embedding.provider"
	KeyEmbedModel       = "embedding.model"
	KeyEmbedBaseURL     = "embedding.base_url"
	KeyEmbedAPIKey      = "embedding.api_key"
	KeyEmbedDimensions  = "embedding.dimensions"
	KeyEmbedBatchSize   = "embedding.batch_size"
	KeyEmbedConcurrency = "embedding.concurrency"
	KeyEmbedRPS         = "embedding.requests_per_second"
	KeyRetrieveTopK     = "retrieve.top_k"
	KeyRetrieveMinScore = "retrieve.min_score"
	KeyWatchDebounce    = "watch.debounce"
)

// defaultDataDirName is created next to the config file.
const defaultDataDirName = "data"

// SettingKeys lists every key accepted by SetValue.
func SettingKeys() []string {
	return []string{
		KeyIndexDir, KeyIndexMetric,
		KeyChunkUnit, KeyChunkSize, KeyChunkOverlap,
		KeyEmbedProvider, KeyEmbedModel, KeyEmbedBaseURL, KeyEmbedAPIKey,
		KeyEmbedDimensions, KeyEmbedBatchSize, KeyEmbedConcurrency, KeyEmbedRPS,
		KeyRetrieveTopK, KeyRetrieveMinScore,
		KeyWatchDebounce,
	}
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
// Missing or invalid stored values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := s.GetDefaults()

	provider := s.getProvider(defaults.Embedding.Provider)
	model := s.configStore.GetString(KeyEmbedModel)
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	dims := s.getInt(KeyEmbedDimensions, 0)
	if dims == 0 && provider == domain.ProviderLocal {
		dims = defaults.Embedding.Dimensions
	}

	settings := &domain.AppSettings{
		Index: domain.IndexSettings{
			Dir:    s.getString(KeyIndexDir, defaults.Index.Dir),
			Metric: s.getMetric(defaults.Index.Metric),
			Chunking: domain.ChunkParams{
				Unit:    s.getChunkUnit(defaults.Index.Chunking.Unit),
				Size:    s.getInt(KeyChunkSize, defaults.Index.Chunking.Size),
				Overlap: s.getIntAllowZero(KeyChunkOverlap, defaults.Index.Chunking.Overlap),
			},
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             model,
			BaseURL:           s.configStore.GetString(KeyEmbedBaseURL), // No default - adapters pick their own
			APIKey:            s.configStore.GetString(KeyEmbedAPIKey),
			Dimensions:        dims,
			BatchSize:         s.getInt(KeyEmbedBatchSize, defaults.Embedding.BatchSize),
			Concurrency:       s.getInt(KeyEmbedConcurrency, defaults.Embedding.Concurrency),
			RequestsPerSecond: s.configStore.GetFloat(KeyEmbedRPS),
		},
		Retrieve: domain.RetrieveSettings{
			TopK: s.getInt(KeyRetrieveTopK, defaults.Retrieve.TopK),
		},
		Watch: domain.WatchSettings{
			Debounce: s.getDuration(KeyWatchDebounce, defaults.Watch.Debounce),
		},
	}

	if _, ok := s.configStore.Get(KeyRetrieveMinScore); ok {
		v := s.configStore.GetFloat(KeyRetrieveMinScore)
		settings.Retrieve.MinScore = &v
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{KeyIndexDir, settings.Index.Dir},
		{KeyIndexMetric, settings.Index.Metric.String()},
		{KeyChunkUnit, settings.Index.Chunking.Unit.String()},
		{KeyChunkSize, settings.Index.Chunking.Size},
		{KeyChunkOverlap, settings.Index.Chunking.Overlap},
		{KeyEmbedProvider, settings.Embedding.Provider.String()},
		{KeyEmbedModel, settings.Embedding.Model},
		{KeyEmbedBaseURL, settings.Embedding.BaseURL},
		{KeyEmbedDimensions, settings.Embedding.Dimensions},
		{KeyEmbedBatchSize, settings.Embedding.BatchSize},
		{KeyEmbedConcurrency, settings.Embedding.Concurrency},
		{KeyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{KeyRetrieveTopK, settings.Retrieve.TopK},
		{KeyWatchDebounce, settings.Watch.Debounce.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(KeyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", KeyEmbedAPIKey, err)
		}
	}

	if settings.Retrieve.MinScore != nil {
		if err := s.configStore.Set(KeyRetrieveMinScore, *settings.Retrieve.MinScore); err != nil {
			return fmt.Errorf("save %s: %w", KeyRetrieveMinScore, err)
		}
	} else if err := s.configStore.Unset(KeyRetrieveMinScore); err != nil {
		return fmt.Errorf("save %s: %w", KeyRetrieveMinScore, err)
	}

	return nil
}

// SetValue validates value for key and stores it.
// An empty value removes the key so its default applies again.
func (s *SettingsService) SetValue(key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if !isSettingKey(key) {
			return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidParameter, key)
		}
		return s.configStore.Unset(key)
	}

	parsed, err := parseSetting(key, value)
	if err != nil {
		return err
	}

	if key == KeyChunkSize || key == KeyChunkOverlap || key == KeyChunkUnit {
		settings, err := s.Get()
		if err != nil {
			return err
		}
		params := settings.Index.Chunking
		switch key {
		case KeyChunkSize:
			params.Size = parsed.(int)
		case KeyChunkOverlap:
			params.Overlap = parsed.(int)
		case KeyChunkUnit:
			params.Unit = domain.ChunkUnit(value)
		}
		if err := params.Validate(); err != nil {
			return err
		}
	}

	return s.configStore.Set(key, parsed)
}

// parseSetting converts a string value to the type stored for key.
//
//nolint:gocyclo // One case per key.
func parseSetting(key, value string) (any, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", domain.ErrInvalidParameter, key, fmt.Sprintf(format, args...))
	}

	switch key {
	case KeyIndexDir, KeyEmbedModel, KeyEmbedBaseURL, KeyEmbedAPIKey:
		return value, nil

	case KeyIndexMetric:
		if !domain.Metric(value).IsValid() {
			return nil, invalid("unknown metric %q (want cosine, l2, or dot)", value)
		}
		return value, nil

	case KeyChunkUnit:
		if !domain.ChunkUnit(value).IsValid() {
			return nil, invalid("unknown unit %q (want chars or words)", value)
		}
		return value, nil

	case KeyEmbedProvider:
		if !domain.EmbeddingProvider(value).IsValid() {
			return nil, invalid("unknown provider %q (want local, ollama, or openai)", value)
		}
		return value, nil

	case KeyChunkSize, KeyEmbedBatchSize, KeyEmbedConcurrency, KeyRetrieveTopK:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return nil, invalid("want a positive integer, got %q", value)
		}
		return n, nil

	case KeyChunkOverlap, KeyEmbedDimensions:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, invalid("want a non-negative integer, got %q", value)
		}
		return n, nil

	case KeyEmbedRPS:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid("want a non-negative number, got %q", value)
		}
		return f, nil

	case KeyRetrieveMinScore:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid("want a number, got %q", value)
		}
		return f, nil

	case KeyWatchDebounce:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, invalid("want a positive duration such as 500ms, got %q", value)
		}
		return d.String(), nil

	default:
		return nil, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidParameter, key)
	}
}

func isSettingKey(key string) bool {
	for _, k := range SettingKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.EmbeddingProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidParameter, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidParameter, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Set base URL based on provider type
	switch provider {
	case domain.ProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	default:
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Dimensions follow the model; the local embedder keeps its configured size.
	switch {
	case provider == domain.ProviderLocal:
		if settings.Embedding.Dimensions == 0 {
			settings.Embedding.Dimensions = domain.DefaultLocalDimensions
		}
	default:
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]
	}

	return s.Save(settings)
}

// Validate checks the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Index.Metric.IsValid() {
		return fmt.Errorf("%w: invalid metric: %s", domain.ErrInvalidParameter, settings.Index.Metric)
	}
	if err := settings.Index.Chunking.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if settings.Retrieve.TopK <= 0 {
		return fmt.Errorf("%w: retrieve.top_k must be positive", domain.ErrInvalidParameter)
	}
	return nil
}

// GetDefaults returns default settings.
// The data directory defaults to a "data" directory next to the config file.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	defaults := domain.DefaultAppSettings()
	if path := s.configStore.Path(); path != "" && path != ":memory:" {
		defaults.Index.Dir = filepath.Join(filepath.Dir(path), defaultDataDirName)
	} else {
		defaults.Index.Dir = defaultDataDirName
	}
	return defaults
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	val := s.configStore.GetInt(key)
	if val < 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(defaultVal domain.EmbeddingProvider) domain.EmbeddingProvider {
	provider := domain.EmbeddingProvider(s.configStore.GetString(KeyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getMetric(defaultVal domain.Metric) domain.Metric {
	metric := domain.Metric(s.configStore.GetString(KeyIndexMetric))
	if !metric.IsValid() {
		return defaultVal
	}
	return metric
}

func (s *SettingsService) getChunkUnit(defaultVal domain.ChunkUnit) domain.ChunkUnit {
	unit := domain.ChunkUnit(s.configStore.GetString(KeyChunkUnit))
	if !unit.IsValid() {
		return defaultVal
	}
	return unit
}
