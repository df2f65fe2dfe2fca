// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// State represents what the view is doing.
type State string

const (
	StateReady      State = "ready"
	StateRetrieving State = "retrieving"
	StateResults    State = "results"
	StateError      State = "error"
)

// Bar shows index status, activity, and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	state    State
	message  string
	count    int
	health   *domain.HealthReport
	bindings []key.Binding
	width    int
}

// NewBar creates a status bar.
func NewBar(s *styles.Styles) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Bar{
		styles: s,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (b *Bar) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the bar is driven through its setters.
func (b *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	return b, nil
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	parts := make([]string, 0, 2)
	if b.health != nil {
		parts = append(parts, fmt.Sprintf("index %s (%d live)", b.styles.Status(b.health.Status()), b.health.LiveCount()))
	}

	switch b.state {
	case StateRetrieving:
		parts = append(parts, b.styles.Muted.Render("retrieving..."))
	case StateError:
		msg := "error"
		if b.message != "" {
			msg = "error: " + b.message
		}
		parts = append(parts, b.styles.Error.Render(msg))
	case StateResults:
		parts = append(parts, b.styles.Normal.Render(fmt.Sprintf("%d chunks", b.count)))
	case StateReady:
		if b.message != "" {
			parts = append(parts, b.styles.Muted.Render(b.message))
		}
	}
	return strings.Join(parts, "  ")
}

func (b *Bar) renderRight() string {
	hints := make([]string, 0, len(b.bindings))
	for _, binding := range b.bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the message shown with the error or ready state.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetCount sets the number of retrieved chunks.
func (b *Bar) SetCount(count int) {
	b.count = count
}

// SetHealth sets the index report summarised on the left.
func (b *Bar) SetHealth(report *domain.HealthReport) {
	b.health = report
}

// SetBindings sets the keybinding hints shown on the right.
func (b *Bar) SetBindings(bindings []key.Binding) {
	b.bindings = bindings
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}
