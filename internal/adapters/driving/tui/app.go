package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/views/query"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
type App struct {
	ports *Ports
	ctx   context.Context

	queryView     *query.View
	documentsView *documents.View

	currentView messages.ViewType
	ready       bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingRetrievalService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:         ports,
		ctx:           context.Background(),
		queryView:     query.NewView(s, km, ports.Retrieval),
		documentsView: documents.NewView(s, km, ports.Index),
		currentView:   messages.ViewQuery,
	}, nil
}

// WithContext sets the context used for retrieval and index calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.queryView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// WithOptions sets the retrieval options applied to every query.
func (a *App) WithOptions(opts domain.RetrieveOptions) *App {
	a.queryView.WithOptions(opts)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("ragstore"),
		a.queryView.Init(),
		a.documentsView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.ready = true
		a.queryView.SetDimensions(msg.Width, msg.Height)
		a.documentsView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewDocuments {
			return a, a.documentsView.Refresh()
		}
		return a, nil

	case messages.HealthLoaded:
		// Both views show index health.
		var qcmd, dcmd tea.Cmd
		a.queryView, qcmd = a.queryView.Update(msg)
		a.documentsView, dcmd = a.documentsView.Update(msg)
		return a, tea.Batch(qcmd, dcmd)

	case messages.DocumentsLoaded:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.RetrieveCompleted:
		a.queryView, cmd = a.queryView.Update(msg)
		return a, cmd
	}

	switch a.currentView {
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewQuery:
		a.queryView, cmd = a.queryView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.currentView == messages.ViewDocuments {
		return a.documentsView.View()
	}
	return a.queryView.View()
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.Update(tea.WindowSizeMsg{Width: width, Height: height})
}

// Run starts the TUI in the alternate screen and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}
