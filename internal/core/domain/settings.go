package domain

import "time"

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that turns text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// ProviderLocal is the built-in feature-hashing embedder. It needs no network.
	ProviderLocal EmbeddingProvider = "local"

	// ProviderOllama is a local Ollama instance.
	ProviderOllama EmbeddingProvider = "ollama"

	// ProviderOpenAI is the OpenAI embeddings API or a compatible endpoint.
	ProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case ProviderLocal, ProviderOllama, ProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == ProviderOpenAI
}

// IsLocal returns true if this provider runs without a remote service.
func (p EmbeddingProvider) IsLocal() bool {
	return p == ProviderLocal || p == ProviderOllama
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case ProviderLocal:
		return "Local (feature hashing, offline)"
	case ProviderOllama:
		return "Ollama (local)"
	case ProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama, or an OpenAI-compatible server).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's native vector size when non-zero.
	Dimensions int

	// BatchSize is the number of texts per embedding request.
	BatchSize int

	// Concurrency bounds parallel embedding requests.
	Concurrency int

	// RequestsPerSecond rate-limits remote providers. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings holds index location and build parameters.
type IndexSettings struct {
	// Dir is the data directory holding the index directory.
	Dir string

	// Metric is the similarity metric used for new builds.
	Metric Metric

	// Chunking holds the chunking parameters used for new builds.
	Chunking ChunkParams
}

// RetrieveSettings holds retrieval defaults.
type RetrieveSettings struct {
	// TopK is the default number of results.
	TopK int

	// MinScore filters results below the threshold when set.
	MinScore *float64
}

// WatchSettings holds filesystem watch configuration.
type WatchSettings struct {
	// Debounce is how long to wait for changes to settle before ingesting.
	Debounce time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Index     IndexSettings
	Embedding EmbeddingSettings
	Retrieve  RetrieveSettings
	Watch     WatchSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The local embedder is selected so a fresh install works offline.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Index: IndexSettings{
			Metric: MetricCosine,
			Chunking: ChunkParams{
				Unit:    ChunkUnitChars,
				Size:    1000,
				Overlap: 200,
			},
		},
		Embedding: EmbeddingSettings{
			Provider:    ProviderLocal,
			Model:       DefaultEmbeddingModels()[ProviderLocal],
			Dimensions:  DefaultLocalDimensions,
			BatchSize:   64,
			Concurrency: 4,
		},
		Retrieve: RetrieveSettings{
			TopK: DefaultTopK,
		},
		Watch: WatchSettings{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// DefaultLocalDimensions is the vector size of the local embedder.
const DefaultLocalDimensions = 384

// AllEmbeddingProviders returns every supported provider.
func AllEmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		ProviderLocal,
		ProviderOllama,
		ProviderOpenAI,
	}
}

// AllMetrics returns every supported similarity metric.
func AllMetrics() []Metric {
	return []Metric{MetricCosine, MetricL2, MetricDot}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		ProviderLocal:  "hash-v1",
		ProviderOllama: "nomic-embed-text",
		ProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
