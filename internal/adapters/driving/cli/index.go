package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

var (
	noWait        bool
	ingestPrune   bool
	ingestCompact bool
	removeCompact bool
	outputJSON    bool
)

var buildCmd = &cobra.Command{
	Use:   "build <dir>",
	Short: "Build the index from a directory",
	Long: `Reads every supported document under <dir>, chunks and embeds it, and
replaces the persisted index with the result.

The previous index stays in place until the new one is complete; if the
build fails for any reason it is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Add new and changed documents to the index",
	Long: `Reads every supported document under <dir> and updates the index in place.
Unchanged documents are skipped. Changed documents have their old chunks
retracted and new chunks appended.

Use --prune to also retract documents that no longer exist under <dir>,
and --compact to drop retracted vectors afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var removeCmd = &cobra.Command{
	Use:   "remove <document-id>...",
	Short: "Retract documents from the index",
	Long:  `Retracts every chunk of the given documents. Unknown document IDs fail the whole command.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Drop retracted vectors from the index",
	Long:  `Rewrites the index without retracted vectors. Stored vectors are reused; nothing is re-embedded.`,
	Args:  cobra.NoArgs,
	RunE:  runCompact,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

func init() {
	for _, cmd := range []*cobra.Command{buildCmd, ingestCmd, removeCmd, compactCmd} {
		cmd.Flags().BoolVar(&noWait, "no-wait", false, "fail instead of waiting when another process is writing the index")
	}
	ingestCmd.Flags().BoolVar(&ingestPrune, "prune", false, "retract documents missing from the directory")
	ingestCmd.Flags().BoolVar(&ingestCompact, "compact", false, "drop retracted vectors after ingesting")
	removeCmd.Flags().BoolVar(&removeCompact, "compact", false, "drop retracted vectors after removing")
	for _, cmd := range []*cobra.Command{buildCmd, ingestCmd, removeCmd, compactCmd, documentsCmd} {
		cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	}

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(documentsCmd)
}

// scanSource reads all documents under dir, printing skipped files.
func scanSource(cmd *cobra.Command, p *Pipeline, dir string) ([]domain.Document, error) {
	if p.NewSource == nil {
		return nil, fmt.Errorf("no document source configured")
	}
	source := p.NewSource(dir)
	defer closeSource(source)

	docs, warnings, err := source.Scan(cmd.Context())
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		cmd.PrintErrf("skipped: %v\n", w)
	}
	return docs, nil
}

func closeSource(source driven.DocumentSource) {
	_ = source.Close() //nolint:errcheck // nothing to report on a read-only source
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	if err := pingEmbedder(cmd, p); err != nil {
		return err
	}

	docs, err := scanSource(cmd, p, args[0])
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	report, err := p.Index.Build(cmd.Context(), docs, domain.BuildOptions{NoWait: noWait})
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, report)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Built index %s: %d documents, %d chunks.\n",
		report.BuildID, report.Documents, report.Chunks)
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	if err := pingEmbedder(cmd, p); err != nil {
		return err
	}

	docs, err := scanSource(cmd, p, args[0])
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	opts := domain.IngestOptions{Prune: ingestPrune, Compact: ingestCompact, NoWait: noWait}
	report, err := p.Index.IngestIncremental(cmd.Context(), docs, opts)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return printIngestReport(cmd, report)
}

func runRemove(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}

	opts := domain.IngestOptions{Compact: removeCompact, NoWait: noWait}
	report, err := p.Index.Remove(cmd.Context(), args, opts)
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	return printIngestReport(cmd, report)
}

func runCompact(cmd *cobra.Command, _ []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}

	report, err := p.Index.Compact(cmd.Context(), domain.IngestOptions{NoWait: noWait})
	if err != nil {
		return fmt.Errorf("compact failed: %w", err)
	}
	return printIngestReport(cmd, report)
}

func printIngestReport(cmd *cobra.Command, report *domain.IngestReport) error {
	if outputJSON {
		return printJSON(cmd, report)
	}
	writeIngestReport(cmd.OutOrStdout(), report)
	return nil
}

func writeIngestReport(w io.Writer, report *domain.IngestReport) {
	if !report.Changed() {
		fmt.Fprintf(w, "Index unchanged (%d documents up to date).\n", report.Unchanged)
		return
	}
	fmt.Fprintf(w, "Added %d, updated %d, removed %d, unchanged %d documents.\n",
		report.Added, report.Updated, report.Removed, report.Unchanged)
	fmt.Fprintf(w, "Chunks: +%d, -%d", report.ChunksAdded, report.ChunksRetracted)
	if report.Compacted {
		fmt.Fprint(w, " (compacted)")
	}
	fmt.Fprintln(w)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}

	docs, err := p.Index.Documents(cmd.Context())
	if errors.Is(err, domain.ErrIndexNotFound) {
		docs, err = []domain.DocumentRecord{}, nil
	}
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, docs)
	}

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents indexed.")
		return nil
	}

	pal := newPalette(out)
	width := len("DOCUMENT")
	for _, d := range docs {
		width = max(width, len(d.ID))
	}
	fmt.Fprintf(out, "%-*s  %6s  %s\n", width, "DOCUMENT", "CHUNKS", "INGESTED")
	for _, d := range docs {
		fmt.Fprintf(out, "%-*s  %6d  %s\n", width, d.ID, d.Chunks, pal.render(pal.dim, humanize.Time(d.IngestedAt)))
	}
	fmt.Fprintf(out, "\n%d documents\n", len(docs))
	return nil
}
