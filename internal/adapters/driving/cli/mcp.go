package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/mcp"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server exposing retrieval to answer generators.

By default, the server communicates over stdio using JSON-RPC. Use --http
to serve streamable HTTP instead.

Tools:
  retrieve      - nearest chunks for a query
  check_health  - the index health report

Resources:
  ragstore://health   - the index health report as JSON

Examples:
  # Stdio mode (for desktop assistants)
  ragstore serve

  # HTTP mode (for MCP Inspector, remote access)
  ragstore serve --http localhost:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval: p.Retrieval,
		Index:     p.Index,
	}, version)
	if err != nil {
		return err
	}

	if serveAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", serveAddr)
		return server.RunHTTP(cmd.Context(), serveAddr)
	}
	return server.Run(cmd.Context())
}
