package domain

import (
	"fmt"
	"time"
)

// ManifestVersion is the on-disk layout version written by this build.
const ManifestVersion = 1

// Metric is the similarity metric an index is built with.
// Switching metrics requires a full rebuild.
type Metric string

// Available similarity metrics.
const (
	// MetricCosine ranks by cosine similarity (higher is better).
	MetricCosine Metric = "cosine"

	// MetricL2 ranks by Euclidean distance; scores are negated distances.
	MetricL2 Metric = "l2"

	// MetricDot ranks by raw inner product (intended for normalised vectors).
	MetricDot Metric = "dot"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricCosine, MetricL2, MetricDot:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// Description returns a human-readable description of the metric.
func (m Metric) Description() string {
	switch m {
	case MetricCosine:
		return "Cosine similarity"
	case MetricL2:
		return "Euclidean distance (score = -distance)"
	case MetricDot:
		return "Inner product"
	default:
		return "Unknown"
	}
}

// EmbedderIdentity identifies the embedding model an index was built with.
type EmbedderIdentity struct {
	Model      string
	Dimensions int
}

// String renders the identity for logs and errors.
func (e EmbedderIdentity) String() string {
	return fmt.Sprintf("%s/%d", e.Model, e.Dimensions)
}

// Manifest records the parameters used to build an index.
type Manifest struct {
	// Version is the layout version (ManifestVersion).
	Version int

	// BuildID identifies the full build that created the index.
	BuildID string

	// Revision changes on every completed mutation.
	Revision string

	// Embedder is the model identity and dimensionality.
	Embedder EmbedderIdentity

	// Metric is the similarity metric.
	Metric Metric

	// Chunking holds the chunking parameters.
	Chunking ChunkParams

	// VectorCount is the number of stored vectors, retracted included.
	VectorCount int

	// RetractedCount is the number of vectors excluded from search.
	RetractedCount int

	// DocumentCount is the number of live documents in the registry.
	DocumentCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LiveCount returns the number of searchable vectors.
func (m Manifest) LiveCount() int {
	return m.VectorCount - m.RetractedCount
}

// CheckEmbedder verifies the manifest was built by the given embedder.
func (m Manifest) CheckEmbedder(id EmbedderIdentity) error {
	if m.Embedder.Dimensions != id.Dimensions {
		return fmt.Errorf("%w: index has %d dimensions, embedder %s produces %d",
			ErrEmbedderMismatch, m.Embedder.Dimensions, id.Model, id.Dimensions)
	}
	if m.Embedder.Model != id.Model {
		return fmt.Errorf("%w: index built with %q, configured embedder is %q",
			ErrEmbedderMismatch, m.Embedder.Model, id.Model)
	}
	return nil
}

// Validate checks the manifest is structurally usable.
func (m Manifest) Validate() error {
	if m.Version != ManifestVersion {
		return fmt.Errorf("%w: unsupported manifest version %d", ErrIndexCorrupt, m.Version)
	}
	if m.Embedder.Dimensions <= 0 {
		return fmt.Errorf("%w: manifest dimensions %d", ErrIndexCorrupt, m.Embedder.Dimensions)
	}
	if !m.Metric.IsValid() {
		return fmt.Errorf("%w: manifest metric %q", ErrIndexCorrupt, m.Metric)
	}
	if err := m.Chunking.Validate(); err != nil {
		return fmt.Errorf("%w: manifest chunking: %w", ErrIndexCorrupt, err)
	}
	if m.VectorCount < 0 || m.RetractedCount < 0 || m.RetractedCount > m.VectorCount {
		return fmt.Errorf("%w: manifest counts %d/%d", ErrIndexCorrupt, m.RetractedCount, m.VectorCount)
	}
	return nil
}
