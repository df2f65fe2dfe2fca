// Package logger provides verbose logging for ragstore.
// When verbose mode is enabled via the --verbose flag, debug messages are
// printed to stderr to trace the build, ingest and retrieval pipelines.
// Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
	styles            = newStyles(os.Stderr)
)

type levelStyles struct {
	debug   lipgloss.Style
	info    lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	section lipgloss.Style
}

// newStyles binds level styles to w. Writers that are not terminals get
// plain text.
func newStyles(w io.Writer) levelStyles {
	r := lipgloss.NewRenderer(w)
	return levelStyles{
		debug:   r.NewStyle().Faint(true),
		info:    r.NewStyle().Foreground(lipgloss.Color("12")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		err:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		section: r.NewStyle().Bold(true),
	}
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	styles = newStyles(w)
}

func emit(always bool, style func(levelStyles) lipgloss.Style, tag, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !always && !verbose {
		return
	}
	fmt.Fprintf(output, "%s %s\n", style(styles).Render(tag), fmt.Sprintf(format, args...))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	emit(false, func(s levelStyles) lipgloss.Style { return s.debug }, "[DEBUG]", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	emit(false, func(s levelStyles) lipgloss.Style { return s.info }, "[INFO]", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	emit(false, func(s levelStyles) lipgloss.Style { return s.warn }, "[WARN]", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	emit(true, func(s levelStyles) lipgloss.Style { return s.err }, "[ERROR]", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n%s\n", styles.section.Render("=== "+name+" ==="))
	}
}

// Elapsed logs how long an operation took. Use with defer:
//
//	defer logger.Elapsed("embed", time.Now())
func Elapsed(what string, start time.Time) {
	Debug("%s took %s", what, time.Since(start).Round(time.Millisecond))
}
