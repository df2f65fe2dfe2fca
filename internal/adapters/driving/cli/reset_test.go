package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetCmd_WithYes(t *testing.T) {
	env := setupTestServices(t)

	out, _, err := run(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Equal(t, 1, env.index.resets)
	assert.Contains(t, out, "Index reset.")
}

func TestResetCmd_RefusesWithoutTerminal(t *testing.T) {
	env := setupTestServices(t)

	_, _, err := run(t, "reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to reset without --yes")
	assert.Zero(t, env.index.resets)
}
