package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var (
	exploreK        int
	exploreMinScore float64
)

// runApp starts the TUI; tests replace it to avoid taking over the terminal.
var runApp = func(app *tui.App) error {
	return app.Run()
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse the index interactively",
	Long: `Launch an interactive terminal browser for the index.

Type a query to see the retrieved chunks with their scores, or switch to the
documents view to check index health and the ingested documents.

Controls:
  Enter    - Retrieve / expand chunk
  ↑/k, ↓/j - Navigate
  Tab      - Switch between query and documents
  n        - New query
  r        - Refresh documents
  Esc      - Back
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().IntVarP(&exploreK, "top-k", "k", 0, "number of chunks per query (default from settings)")
	exploreCmd.Flags().Float64Var(&exploreMinScore, "min-score", 0, "drop chunks scoring below this threshold")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Retrieval: p.Retrieval, Index: p.Index})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	opts := domain.RetrieveOptions{K: exploreK}
	if cmd.Flags().Changed("min-score") {
		threshold := exploreMinScore
		opts.MinScore = &threshold
	}
	app.WithContext(cmd.Context()).WithOptions(opts)

	if err := runApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
