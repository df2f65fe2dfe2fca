// Package mcp provides an MCP (Model Context Protocol) server adapter for ragstore.
// It lets answer generators retrieve context chunks from the local index.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// toolError prefixes err with its stable kind so clients can branch on it.
func toolError(err error) error {
	return fmt.Errorf("%s: %w", domain.KindOf(err), err)
}
