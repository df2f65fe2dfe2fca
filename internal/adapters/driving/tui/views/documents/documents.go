// Package documents provides the indexed documents view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// View lists the documents in the index next to a health summary.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	index  driving.IndexService
	ctx    context.Context

	documents    []domain.DocumentRecord
	health       *domain.HealthReport
	selected     int
	scrollOffset int
	width        int
	height       int
	err          error
	loading      bool
}

// NewView creates a documents view.
func NewView(s *styles.Styles, km *keymap.KeyMap, index driving.IndexService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keymap: km,
		index:  index,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context used for loading.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the documents and health report.
func (v *View) Init() tea.Cmd {
	return v.Refresh()
}

// Refresh returns commands reloading the documents and health report.
func (v *View) Refresh() tea.Cmd {
	if v.index == nil {
		return nil
	}
	v.loading = true
	return tea.Batch(v.loadDocuments(), v.loadHealth())
}

func (v *View) loadDocuments() tea.Cmd {
	return func() tea.Msg {
		docs, err := v.index.Documents(v.ctx)
		if errors.Is(err, domain.ErrIndexNotFound) {
			docs, err = []domain.DocumentRecord{}, nil
		}
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) loadHealth() tea.Cmd {
	return func() tea.Msg {
		report, err := v.index.CheckHealth(v.ctx)
		return messages.HealthLoaded{Report: report, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.documents = msg.Documents
			v.selected = min(v.selected, max(len(v.documents)-1, 0))
			v.adjustScroll()
		}
		return v, nil

	case messages.HealthLoaded:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.health = msg.Report
		}
		return v, nil
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.SwitchView), keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewQuery}
		}
	case keymap.Matches(k, v.keymap.Quit):
		return v, tea.Quit
	case keymap.Matches(k, v.keymap.Refresh):
		return v, v.Refresh()
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	}
	return v, nil
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	}
	if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// Header, health lines, column titles, footer, and status hints.
	return max(v.height-10, 1)
}

// View renders the documents view.
func (v *View) View() string {
	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("Indexed documents"), v.renderHealth(), "")

	switch {
	case v.err != nil:
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	case v.loading && len(v.documents) == 0:
		sections = append(sections, v.styles.Muted.Render("Loading..."))
	case len(v.documents) == 0:
		sections = append(sections, v.styles.Muted.Render("No documents indexed. Run 'ragstore build <dir>'."))
	default:
		sections = append(sections, v.renderTable())
	}

	sections = append(sections, "", v.renderHelp(v.keymap.DocumentsHelp()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderHealth() string {
	if v.health == nil {
		return v.styles.Muted.Render("index status unknown")
	}
	h := v.health
	line := fmt.Sprintf("index %s  %s live vectors, %s retracted, %s documents",
		v.styles.Status(h.Status()),
		humanize.Comma(int64(h.LiveCount())),
		humanize.Comma(int64(h.RetractedCount)),
		humanize.Comma(int64(h.DocumentCount)))
	if h.Model != "" {
		line += v.styles.Muted.Render(fmt.Sprintf("  (%s, %d dims, %s)", h.Model, h.Dimensions, h.Metric))
	}
	return line
}

func (v *View) renderTable() string {
	width := len("DOCUMENT")
	for i := range v.documents {
		width = max(width, len(v.documents[i].ID))
	}
	width = min(width, max(v.width-30, 10))

	end := min(v.scrollOffset+v.visibleItemCount(), len(v.documents))
	lines := make([]string, 0, end-v.scrollOffset+1)
	lines = append(lines, v.styles.Subtitle.Render(fmt.Sprintf("  %-*s  %6s  %s", width, "DOCUMENT", "CHUNKS", "INGESTED")))
	for i := v.scrollOffset; i < end; i++ {
		lines = append(lines, v.renderDocument(i, &v.documents[i], width))
	}
	return strings.Join(lines, "\n")
}

func (v *View) renderDocument(index int, doc *domain.DocumentRecord, width int) string {
	id := doc.ID
	if len(id) > width {
		id = "..." + id[len(id)-width+3:]
	}
	line := fmt.Sprintf("  %-*s  %6d  %s", width, id, doc.Chunks, humanize.Time(doc.IngestedAt))
	if index == v.selected {
		return v.styles.Selected.Render(">" + line[1:])
	}
	return v.styles.Normal.Render(line)
}

func (v *View) renderHelp(bindings []key.Binding) string {
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return v.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.DocumentRecord {
	return v.documents
}

// SelectedDocument returns the selected document, or nil.
func (v *View) SelectedDocument() *domain.DocumentRecord {
	if v.selected < 0 || v.selected >= len(v.documents) {
		return nil
	}
	return &v.documents[v.selected]
}

// Err returns the last load error, if any.
func (v *View) Err() error {
	return v.err
}
