package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query    string   `json:"query" jsonschema:"the text to find similar chunks for"`
	K        int      `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default from settings)"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"drop chunks scoring below this threshold"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Sequence   int     `json:"sequence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// HealthInput is the input schema for the check_health tool.
type HealthInput struct{}

// HealthOutput is the output schema for the check_health tool.
type HealthOutput struct {
	Status         string   `json:"status"`
	Path           string   `json:"path"`
	Exists         bool     `json:"exists"`
	Consistent     bool     `json:"consistent"`
	ManifestOK     bool     `json:"manifest_ok"`
	VectorCount    int      `json:"vector_count"`
	SidecarCount   int      `json:"sidecar_count"`
	LiveCount      int      `json:"live_count"`
	RetractedCount int      `json:"retracted_count"`
	DocumentCount  int      `json:"document_count"`
	Model          string   `json:"model,omitempty"`
	Dimensions     int      `json:"dimensions,omitempty"`
	Metric         string   `json:"metric,omitempty"`
	Problems       []string `json:"problems"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the indexed text chunks most similar to a query, best first",
	}, s.handleRetrieve)

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "check_health",
			Description: "Report whether the vector index is present, consistent, and searchable",
		}, s.handleCheckHealth)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := domain.RetrieveOptions{K: input.K, MinScore: input.MinScore}
	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, toolError(err)
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(results)),
		Count:  len(results),
	}
	for i := range results {
		output.Chunks[i] = ChunkOutput{
			DocumentID: results[i].DocumentID,
			ChunkID:    results[i].ChunkID,
			Sequence:   results[i].Sequence,
			Start:      results[i].Start,
			End:        results[i].End,
			Score:      results[i].Score,
			Text:       results[i].Text,
		}
	}

	return nil, output, nil
}

// handleCheckHealth handles the check_health tool invocation.
func (s *Server) handleCheckHealth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ HealthInput,
) (*mcp.CallToolResult, HealthOutput, error) {
	report, err := s.ports.Index.CheckHealth(ctx)
	if err != nil {
		return nil, HealthOutput{}, toolError(err)
	}

	problems := report.Problems
	if problems == nil {
		problems = []string{}
	}
	return nil, HealthOutput{
		Status:         string(report.Status()),
		Path:           report.Path,
		Exists:         report.Exists,
		Consistent:     report.Consistent,
		ManifestOK:     report.ManifestOK,
		VectorCount:    report.VectorCount,
		SidecarCount:   report.SidecarCount,
		LiveCount:      report.LiveCount(),
		RetractedCount: report.RetractedCount,
		DocumentCount:  report.DocumentCount,
		Model:          report.Model,
		Dimensions:     report.Dimensions,
		Metric:         string(report.Metric),
		Problems:       problems,
	}, nil
}
