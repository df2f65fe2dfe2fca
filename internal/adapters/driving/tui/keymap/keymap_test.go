package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	assert.Equal(t, []string{"q", "ctrl+c"}, km.Quit.Keys())
	assert.Equal(t, []string{"enter"}, km.Submit.Keys())
	assert.Equal(t, []string{"tab"}, km.SwitchView.Keys())
	assert.Equal(t, "new query", km.NewQuery.Help().Desc)
}

func TestKeyMap_HelpSets(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.InputHelp(), 3)
	assert.Contains(t, km.ResultsHelp(), km.Expand)
	assert.Contains(t, km.DocumentsHelp(), km.Refresh)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"q quits", "q", true},
		{"ctrl+c quits", "ctrl+c", true},
		{"x does not quit", "x", false},
		{"empty does not quit", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.key, km.Quit))
		})
	}

	assert.True(t, Matches("/", km.NewQuery))
	assert.True(t, Matches("j", km.Down))
}
