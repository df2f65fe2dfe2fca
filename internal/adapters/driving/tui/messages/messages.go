// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// RetrieveCompleted carries the chunks returned for a query.
type RetrieveCompleted struct {
	Query   string
	Results []domain.RetrievedChunk
	Err     error
}

// HealthLoaded carries a fresh index health report.
type HealthLoaded struct {
	Report *domain.HealthReport
	Err    error
}

// DocumentsLoaded carries the document registry.
type DocumentsLoaded struct {
	Documents []domain.DocumentRecord
	Err       error
}

// ViewChanged requests a switch to another view.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies a view.
type ViewType int

const (
	// ViewQuery is the query and results view.
	ViewQuery ViewType = iota

	// ViewDocuments lists the indexed documents.
	ViewDocuments
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewQuery:
		return "query"
	case ViewDocuments:
		return "documents"
	default:
		return "unknown"
	}
}

// ErrorOccurred reports an error to display.
type ErrorOccurred struct {
	Err error
}
