package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

var checkJSON bool

// errUnhealthy is returned by check when the index needs attention.
var errUnhealthy = errors.New("index is not healthy")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report on the persisted index",
	Long: `Inspects the vector file, the sidecar, and the manifest without modifying them.

Status is one of:
  missing       - no index has been built
  empty         - the index exists but holds no searchable vectors
  active        - the index is consistent and searchable
  incomplete    - one or more index files are missing
  inconsistent  - the files disagree or cannot be read
  mismatch      - the index was built with a different embedder

The command exits non-zero for incomplete, inconsistent and mismatch.
Run 'ragstore reset' and rebuild to recover.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output the health report as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}

	report, err := p.Index.CheckHealth(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if checkJSON {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	} else {
		var manifest *domain.Manifest
		if report.Status() == domain.StatusActive || report.Status() == domain.StatusEmpty {
			manifest, _ = p.Index.Manifest(cmd.Context()) //nolint:errcheck // timestamps are optional
		}
		writeHealth(cmd.OutOrStdout(), newPalette(cmd.OutOrStdout()), report, manifest)
	}

	switch report.Status() {
	case domain.StatusIncomplete, domain.StatusInconsistent, domain.StatusMismatch:
		return fmt.Errorf("%w: %s", errUnhealthy, report.Status())
	}
	return nil
}

func writeHealth(w io.Writer, pal palette, h *domain.HealthReport, m *domain.Manifest) {
	fmt.Fprintln(w, pal.render(pal.title, "Index Health"))
	fmt.Fprintf(w, "  Path:     %s\n", h.Path)
	fmt.Fprintf(w, "  Status:   %s\n", pal.status(h.Status()))
	if !h.Exists {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No index found. Run 'ragstore build <dir>' to create one.")
		return
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, pal.render(pal.title, "Files"))
	fmt.Fprintf(w, "  Vectors:  %s\n", pal.mark(h.IndexFileExists))
	fmt.Fprintf(w, "  Sidecar:  %s\n", pal.mark(h.SidecarExists))
	fmt.Fprintf(w, "  Manifest: %s\n", pal.mark(h.ManifestExists))
	fmt.Fprintln(w)

	fmt.Fprintln(w, pal.render(pal.title, "Contents"))
	fmt.Fprintf(w, "  Vectors:          %s\n", humanize.Comma(int64(h.VectorCount)))
	fmt.Fprintf(w, "  Sidecar entries:  %s\n", humanize.Comma(int64(h.SidecarCount)))
	fmt.Fprintf(w, "  Retracted:        %s\n", humanize.Comma(int64(h.RetractedCount)))
	fmt.Fprintf(w, "  Live:             %s\n", humanize.Comma(int64(h.LiveCount())))
	fmt.Fprintf(w, "  Documents:        %s\n", humanize.Comma(int64(h.DocumentCount)))
	if h.Model != "" {
		fmt.Fprintf(w, "  Embedder:         %s (%d dimensions)\n", h.Model, h.Dimensions)
		fmt.Fprintf(w, "  Metric:           %s\n", h.Metric)
		fmt.Fprintf(w, "  Chunking:         %s\n", h.Chunking)
	}
	if h.BuildID != "" {
		fmt.Fprintf(w, "  Build:            %s\n", h.BuildID)
	}
	if m != nil {
		fmt.Fprintf(w, "  Built:            %s\n", humanize.Time(m.CreatedAt))
		fmt.Fprintf(w, "  Updated:          %s\n", humanize.Time(m.UpdatedAt))
	}

	if len(h.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, pal.render(pal.title, "Sources"))
		width := 0
		for _, s := range h.Sources {
			width = max(width, len(s.DocumentID))
		}
		for _, s := range h.Sources {
			fmt.Fprintf(w, "  %-*s  %s\n", width, s.DocumentID,
				pal.render(pal.dim, fmt.Sprintf("%d %s", s.Chunks, plural(s.Chunks, "chunk"))))
		}
	}

	if len(h.Problems) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, pal.render(pal.title, "Problems"))
		for _, problem := range h.Problems {
			fmt.Fprintf(w, "  - %s\n", problem)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run 'ragstore reset' and rebuild to recover.")
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
