package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var (
	queryK        int
	queryMinScore float64
	queryJSON     bool
	queryFull     bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve the chunks most similar to a query",
	Long: `Embeds <text> and returns the nearest chunks from the index, best first.
Scores are higher for closer matches regardless of the index metric.

The result is the context an answer generator would be given; ragstore does
not generate answers itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "top-k", "k", 0, "number of chunks to return (default from settings)")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", 0, "drop chunks scoring below this threshold")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	queryCmd.Flags().BoolVar(&queryFull, "full", false, "print full chunk text")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}

	opts := domain.RetrieveOptions{K: queryK}
	if cmd.Flags().Changed("min-score") {
		threshold := queryMinScore
		opts.MinScore = &threshold
	}

	results, err := p.Retrieval.Retrieve(cmd.Context(), args[0], opts)
	if errors.Is(err, domain.ErrEmptyIndex) {
		return fmt.Errorf("%w: run 'ragstore build <dir>' first", err)
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, results)
	}
	return outputQueryTable(cmd, results)
}

func outputQueryTable(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	out := cmd.OutOrStdout()
	pal := newPalette(out)

	if len(results) == 0 {
		fmt.Fprintln(out, "No chunks above the score threshold.")
		return nil
	}

	limit := 240
	if queryFull {
		limit = 0
	}
	for i, r := range results {
		fmt.Fprintf(out, "[%d] %s %s\n", i+1, pal.render(pal.title, r.DocumentID),
			pal.render(pal.dim, fmt.Sprintf("(%.4f, chunk %d, chars %d-%d)", r.Score, r.Sequence, r.Start, r.End)))
		fmt.Fprintf(out, "    %s\n\n", truncate(r.Text, limit))
	}
	return nil
}
