package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// palette styles terminal output. Output that is not a terminal is plain.
type palette struct {
	color bool
	good  lipgloss.Style
	warn  lipgloss.Style
	bad   lipgloss.Style
	dim   lipgloss.Style
	title lipgloss.Style
}

func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		color: isTerminal(w),
		good:  r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		bad:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dim:   r.NewStyle().Faint(true),
		title: r.NewStyle().Bold(true).Underline(true),
	}
}

func (p palette) render(style lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return style.Render(text)
}

// status renders an index status in a colour matching its severity.
func (p palette) status(s domain.IndexStatus) string {
	label := strings.ToUpper(string(s))
	switch s {
	case domain.StatusActive:
		return p.render(p.good, label)
	case domain.StatusEmpty, domain.StatusMissing:
		return p.render(p.warn, label)
	default:
		return p.render(p.bad, label)
	}
}

// mark renders a check mark or a cross.
func (p palette) mark(ok bool) string {
	if ok {
		return p.render(p.good, "ok")
	}
	return p.render(p.bad, "missing")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// truncate shortens text to at most n runes, marking the cut.
func truncate(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
