package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep the index in sync with a directory",
	Long: `Ingests <dir> once, then watches it for changes and re-ingests after each
burst of changes settles. Documents deleted from <dir> are retracted.

The settle time is the watch.debounce setting. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	if p.NewSource == nil || p.NewWatch == nil {
		return fmt.Errorf("watching is not configured")
	}
	if err := pingEmbedder(cmd, p); err != nil {
		return err
	}

	source := p.NewSource(args[0])
	defer closeSource(source)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", source.Root())

	return p.NewWatch(source).Run(cmd.Context(), func(report *domain.IngestReport, err error) {
		if err != nil {
			logger.Error("Ingest failed: %v", err)
			return
		}
		writeIngestReport(out, report)
	})
}
