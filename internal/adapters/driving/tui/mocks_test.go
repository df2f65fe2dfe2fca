package tui

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

type mockRetrievalService struct {
	results []domain.RetrievedChunk
	err     error
	opts    domain.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string, opts domain.RetrieveOptions) ([]domain.RetrievedChunk, error) {
	m.opts = opts
	return m.results, m.err
}

// mockIndexService implements the index calls the TUI makes.
type mockIndexService struct {
	driving.IndexService
	docs       []domain.DocumentRecord
	health     *domain.HealthReport
	docsCalls  int
	healthCall int
}

func (m *mockIndexService) Documents(_ context.Context) ([]domain.DocumentRecord, error) {
	m.docsCalls++
	return m.docs, nil
}

func (m *mockIndexService) CheckHealth(_ context.Context) (*domain.HealthReport, error) {
	m.healthCall++
	return m.health, nil
}
