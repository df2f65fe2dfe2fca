package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
)

func stubRunApp(t *testing.T, fn func(app *tui.App) error) {
	t.Helper()
	old := runApp
	runApp = fn
	t.Cleanup(func() { runApp = old })
}

func TestExploreCmd_Use(t *testing.T) {
	assert.Equal(t, "explore", exploreCmd.Use)
	assert.NotNil(t, exploreCmd.Flags().Lookup("top-k"))
	assert.NotNil(t, exploreCmd.Flags().Lookup("min-score"))
}

func TestExploreCmd_StartsApp(t *testing.T) {
	setupTestServices(t)

	var started *tui.App
	stubRunApp(t, func(app *tui.App) error {
		started = app
		return nil
	})

	_, _, err := run(t, "explore", "-k", "3")
	require.NoError(t, err)
	require.NotNil(t, started)
	assert.Equal(t, messages.ViewQuery, started.CurrentView())
}

func TestExploreCmd_AppError(t *testing.T) {
	setupTestServices(t)
	stubRunApp(t, func(_ *tui.App) error { return errors.New("no tty") })

	_, _, err := run(t, "explore")
	assert.ErrorContains(t, err, "TUI error: no tty")
}

func TestExploreCmd_RejectsArgs(t *testing.T) {
	setupTestServices(t)
	stubRunApp(t, func(_ *tui.App) error { return nil })

	_, _, err := run(t, "explore", "cats")
	assert.Error(t, err)
}
