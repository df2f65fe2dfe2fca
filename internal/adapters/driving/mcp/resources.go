package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for ragstore resources.
	uriScheme = "ragstore://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Index == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "health",
		Name:        "health",
		Description: "Health report of the persisted vector index",
		MIMEType:    "application/json",
	}, s.handleHealthResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents currently in the index",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)
}

// handleHealthResource returns the health report as JSON.
func (s *Server) handleHealthResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	report, err := s.ports.Index.CheckHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking health: %w", err)
	}
	return jsonResource(req.Params.URI, report)
}

// handleDocumentsResource returns the document registry as JSON.
// A missing index yields an empty list.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Index.Documents(ctx)
	if errors.Is(err, domain.ErrIndexNotFound) {
		docs, err = []domain.DocumentRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return jsonResource(req.Params.URI, docs)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
