package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func newTestApp(t *testing.T) (*App, *mockRetrievalService, *mockIndexService) {
	t.Helper()
	retrieval := &mockRetrievalService{results: []domain.RetrievedChunk{
		{DocumentID: "cat.txt", Text: "The cat sat on the mat.", Score: 0.91},
	}}
	index := &mockIndexService{
		docs:   []domain.DocumentRecord{{ID: "cat.txt", Chunks: 1}},
		health: &domain.HealthReport{Consistent: true},
	}
	app, err := NewApp(&Ports{Retrieval: retrieval, Index: index})
	require.NoError(t, err)
	return app, retrieval, index
}

func TestNewApp(t *testing.T) {
	app, _, _ := newTestApp(t)

	assert.Equal(t, messages.ViewQuery, app.CurrentView())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Index: &mockIndexService{}})
	assert.ErrorIs(t, err, ErrMissingRetrievalService)
	assert.Nil(t, app)

	app, err = NewApp(nil)
	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _, _ := newTestApp(t)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
}

func TestApp_Init(t *testing.T) {
	app, _, _ := newTestApp(t)

	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app, _, _ := newTestApp(t)

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Nil(t, cmd)
	assert.Equal(t, app, model)
	assert.Contains(t, app.View(), "Query:")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app, _, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_SwitchViews(t *testing.T) {
	app, _, index := newTestApp(t)
	app.SetDimensions(100, 30)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	_, cmd = app.Update(cmd())
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())

	// Entering the documents view reloads the registry.
	require.NotNil(t, cmd)
	for _, c := range cmd().(tea.BatchMsg) {
		app.Update(c())
	}
	assert.Equal(t, 1, index.docsCalls)
	assert.Contains(t, app.View(), "cat.txt")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, messages.ViewQuery, app.CurrentView())
}

func TestApp_RetrieveFlow(t *testing.T) {
	app, retrieval, _ := newTestApp(t)
	threshold := 0.5
	app.WithOptions(domain.RetrieveOptions{K: 2, MinScore: &threshold})
	app.SetDimensions(100, 30)

	for _, r := range "cat" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, 2, retrieval.opts.K)
	out := app.View()
	assert.Contains(t, out, "cat.txt")
	assert.Contains(t, out, "0.910")
}

func TestApp_HealthReachesBothViews(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.SetDimensions(100, 30)

	report := &domain.HealthReport{Consistent: true}
	app.Update(messages.HealthLoaded{Report: report})

	assert.Contains(t, app.View(), "index missing")

	app.Update(messages.ViewChanged{View: messages.ViewDocuments})
	assert.Contains(t, app.View(), "index missing")
}
