package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewQueryInput(t *testing.T) {
	q := NewQueryInput(nil)

	assert.True(t, q.Focused())
	assert.Empty(t, q.Value())
	assert.Equal(t, 50, q.Width())
	assert.NotNil(t, q.Init())
}

func TestQueryInput_Typing(t *testing.T) {
	q := NewQueryInput(nil)

	for _, r := range "cats" {
		q, _ = q.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	assert.Equal(t, "cats", q.Value())
	assert.Contains(t, q.View(), "Query:")
}

func TestQueryInput_FocusAndBlur(t *testing.T) {
	q := NewQueryInput(nil)

	q.Blur()
	assert.False(t, q.Focused())

	q.Focus()
	assert.True(t, q.Focused())
}

func TestQueryInput_SetValue(t *testing.T) {
	q := NewQueryInput(nil)
	q.SetValue("dogs")
	assert.Equal(t, "dogs", q.Value())
}

func TestQueryInput_SetWidth(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  int
	}{
		{"wide", 100, 88},
		{"narrow clamps", 10, minInputWidth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueryInput(nil)
			q.SetWidth(tt.width)
			assert.Equal(t, tt.width, q.Width())
			assert.Equal(t, tt.want, q.textinput.Width)
		})
	}
}
