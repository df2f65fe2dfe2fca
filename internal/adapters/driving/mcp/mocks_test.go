package mcp

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.RetrievedChunk
	err     error

	query string
	opts  domain.RetrieveOptions
}

var _ driving.RetrievalService = (*mockRetrievalService)(nil)

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	opts domain.RetrieveOptions,
) ([]domain.RetrievedChunk, error) {
	m.query, m.opts = query, opts
	return m.results, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
// Only the read operations carry canned results.
type mockIndexService struct {
	health  *domain.HealthReport
	docs    []domain.DocumentRecord
	err     error
	docsErr error
}

var _ driving.IndexService = (*mockIndexService)(nil)

func (m *mockIndexService) Build(_ context.Context, _ []domain.Document, _ domain.BuildOptions) (*domain.BuildReport, error) {
	return &domain.BuildReport{}, m.err
}

func (m *mockIndexService) IngestIncremental(_ context.Context, _ []domain.Document, _ domain.IngestOptions) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIndexService) Remove(_ context.Context, _ []string, _ domain.IngestOptions) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIndexService) Compact(_ context.Context, _ domain.IngestOptions) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIndexService) CheckHealth(_ context.Context) (*domain.HealthReport, error) {
	return m.health, m.err
}

func (m *mockIndexService) Reset(_ context.Context) error {
	return m.err
}

func (m *mockIndexService) Documents(_ context.Context) ([]domain.DocumentRecord, error) {
	return m.docs, m.docsErr
}

func (m *mockIndexService) Manifest(_ context.Context) (*domain.Manifest, error) {
	return nil, m.err
}
