// Package query provides the query and results view for the TUI.
package query

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// ErrNoRetrievalService indicates that no retrieval service was provided.
var ErrNoRetrievalService = errors.New("retrieval service is required")

// View is the query view: an input, the retrieved chunks, and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ChunkList
	statusbar *status.Bar

	retrieval driving.RetrievalService
	opts      domain.RetrieveOptions
	ctx       context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a query view.
func NewView(s *styles.Styles, km *keymap.KeyMap, retrieval driving.RetrievalService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s),
		list:       list.NewChunkList(s),
		statusbar:  status.NewBar(s),
		retrieval:  retrieval,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
	v.statusbar.SetBindings(km.InputHelp())
	return v
}

// WithContext sets the context used for retrieval.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithOptions sets the retrieval options used for every query.
func (v *View) WithOptions(opts domain.RetrieveOptions) *View {
	v.opts = opts
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the query view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RetrieveCompleted:
		v.handleRetrieveCompleted(msg)
		return v, nil

	case messages.HealthLoaded:
		if msg.Err == nil {
			v.statusbar.SetHealth(msg.Report)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if keymap.Matches(msg.String(), v.keymap.SwitchView) {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewDocuments}
		}
	}

	if v.focusInput {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyEnter:
			query := v.input.Value()
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateRetrieving)
			return v, v.retrieve(query)
		case tea.KeyEsc:
			if v.list.Count() > 0 {
				v.focusResults()
			}
			return v, nil
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case msg.Type == tea.KeyEnter:
		v.list.ToggleExpanded()
	case msg.Type == tea.KeyEsc:
		if v.list.Expanded() {
			v.list.ToggleExpanded()
		} else {
			v.focusQuery()
		}
	case keymap.Matches(msg.String(), v.keymap.NewQuery):
		v.focusQuery()
		v.input.SetValue("")
	case keymap.Matches(msg.String(), v.keymap.Quit):
		return v, tea.Quit
	default:
		v.list, _ = v.list.Update(msg)
	}
	return v, nil
}

func (v *View) retrieve(query string) tea.Cmd {
	return func() tea.Msg {
		if v.retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		results, err := v.retrieval.Retrieve(v.ctx, query, v.opts)
		return messages.RetrieveCompleted{Query: query, Results: results, Err: err}
	}
}

func (v *View) handleRetrieveCompleted(msg messages.RetrieveCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetChunks(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetCount(len(msg.Results))
	v.focusResults()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(string(domain.KindOf(err)))
}

func (v *View) focusResults() {
	v.focusInput = false
	v.input.Blur()
	v.statusbar.SetBindings(v.keymap.ResultsHelp())
}

func (v *View) focusQuery() {
	v.focusInput = true
	v.input.Focus()
	v.statusbar.SetBindings(v.keymap.InputHelp())
}

// View renders the query view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("ragstore"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render(errorHint(v.err)), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// errorHint turns a retrieval error into an actionable line.
func errorHint(err error) string {
	switch domain.KindOf(err) {
	case domain.KindEmptyIndex:
		return "The index is empty. Run 'ragstore build <dir>' first."
	case domain.KindEmbedderMismatch:
		return "The index was built with a different embedder. Rebuild it to query."
	case domain.KindEmbeddingUnavailable:
		return "The embedder is not reachable: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-9)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view has been sized.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the text in the input.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the text in the input.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the retrieved chunks.
func (v *View) Results() []domain.RetrievedChunk {
	return v.list.Chunks()
}

// SelectedChunk returns the selected chunk, or nil.
func (v *View) SelectedChunk() *domain.RetrievedChunk {
	return v.list.SelectedChunk()
}

// Expanded reports whether the selected chunk is shown in full.
func (v *View) Expanded() bool {
	return v.list.Expanded()
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
