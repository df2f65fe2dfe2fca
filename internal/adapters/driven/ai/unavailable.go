package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// UnavailableEmbeddingService reports the configured model identity but cannot embed.
// It stands in for a provider that could not be constructed, so commands that only
// compare identities or touch the index directory keep working.
type UnavailableEmbeddingService struct {
	model      string
	dimensions int
	cause      error
}

var _ driven.EmbeddingService = (*UnavailableEmbeddingService)(nil)

// NewUnavailableEmbeddingService returns an embedder carrying the identity in settings
// whose embedding calls all fail with cause.
func NewUnavailableEmbeddingService(settings *domain.EmbeddingSettings, cause error) *UnavailableEmbeddingService {
	s := &UnavailableEmbeddingService{cause: cause}
	if settings != nil {
		s.model = settings.Model
		s.dimensions = settings.Dimensions
		if s.dimensions == 0 {
			s.dimensions = domain.EmbeddingDimensions()[settings.Model]
		}
	}
	if s.cause == nil {
		s.cause = fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbeddingUnavailable)
	}
	return s
}

// Embed always fails.
func (s *UnavailableEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, s.err()
}

// EmbedBatch always fails.
func (s *UnavailableEmbeddingService) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, s.err()
}

// Dimensions returns the configured or well-known vector size for the model, or 0.
func (s *UnavailableEmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the configured model.
func (s *UnavailableEmbeddingService) ModelName() string { return s.model }

// Ping reports the construction failure.
func (s *UnavailableEmbeddingService) Ping(_ context.Context) error { return s.err() }

// Close is a no-op.
func (s *UnavailableEmbeddingService) Close() error { return nil }

func (s *UnavailableEmbeddingService) err() error {
	if domain.KindOf(s.cause) == domain.KindEmbeddingUnavailable {
		return s.cause
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, s.cause)
}
