// Package tui provides an interactive terminal browser for the vector store.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Retrieval answers queries typed into the query view.
	Retrieval driving.RetrievalService

	// Index supplies health and the document registry.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}
