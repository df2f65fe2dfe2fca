// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// linesPerChunk is the height of one collapsed entry: header and preview.
const linesPerChunk = 2

// ChunkList displays retrieved chunks in a navigable list.
type ChunkList struct {
	chunks   []domain.RetrievedChunk
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewChunkList creates an empty chunk list.
func NewChunkList(s *styles.Styles) *ChunkList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ChunkList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (c *ChunkList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *ChunkList) Update(msg tea.Msg) (*ChunkList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.MoveUp()
		case "down", "j":
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the list, or the selected chunk in full when expanded.
func (c *ChunkList) View() string {
	if len(c.chunks) == 0 {
		return c.styles.Muted.Render("No chunks above the score threshold")
	}
	if c.expanded {
		return c.renderExpanded(&c.chunks[c.selected])
	}

	lines := make([]string, 0, len(c.chunks)*linesPerChunk+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Chunks (%d)", len(c.chunks))), "")

	visible := max((c.height-2)/linesPerChunk, 1)
	start := 0
	if c.selected >= visible {
		start = c.selected - visible + 1
	}
	end := min(start+visible, len(c.chunks))

	for i := start; i < end; i++ {
		lines = append(lines, c.renderChunk(i, &c.chunks[i]))
	}
	return strings.Join(lines, "\n")
}

func (c *ChunkList) renderChunk(index int, chunk *domain.RetrievedChunk) string {
	indicator := "  "
	if index == c.selected {
		indicator = "> "
	}

	label := fmt.Sprintf("%s%d. %s #%d", indicator, index+1, chunk.DocumentID, chunk.Sequence)
	label = clip(label, max(c.width-12, 10))
	score := fmt.Sprintf("%.3f", chunk.Score)

	var header string
	if index == c.selected {
		header = c.styles.Selected.Render(label + "  " + score)
	} else {
		header = c.styles.Normal.Render(label+"  ") + c.styles.Score.Render(score)
	}

	preview := clip(strings.Join(strings.Fields(chunk.Text), " "), max(c.width-6, 20))
	return header + "\n" + c.styles.Muted.Render("    "+preview)
}

func (c *ChunkList) renderExpanded(chunk *domain.RetrievedChunk) string {
	title := c.styles.Subtitle.Render(fmt.Sprintf("%s #%d", chunk.DocumentID, chunk.Sequence))
	meta := c.styles.Muted.Render(fmt.Sprintf("score %.4f, chars %d-%d", chunk.Score, chunk.Start, chunk.End))
	body := c.styles.Border.Width(max(c.width-4, 20)).Render(chunk.Text)
	return strings.Join([]string{title, meta, "", body}, "\n")
}

// clip shortens s to n runes, marking the cut.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// SetChunks replaces the list contents and resets the selection.
func (c *ChunkList) SetChunks(chunks []domain.RetrievedChunk) {
	c.chunks = chunks
	c.selected = 0
	c.expanded = false
}

// Chunks returns the current chunks.
func (c *ChunkList) Chunks() []domain.RetrievedChunk {
	return c.chunks
}

// Selected returns the index of the selected chunk.
func (c *ChunkList) Selected() int {
	return c.selected
}

// SelectedChunk returns the selected chunk, or nil if the list is empty.
func (c *ChunkList) SelectedChunk() *domain.RetrievedChunk {
	if c.selected < 0 || c.selected >= len(c.chunks) {
		return nil
	}
	return &c.chunks[c.selected]
}

// MoveUp moves the selection up.
func (c *ChunkList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves the selection down.
func (c *ChunkList) MoveDown() {
	if c.selected < len(c.chunks)-1 {
		c.selected++
	}
}

// ToggleExpanded switches between the list and the selected chunk's full text.
func (c *ChunkList) ToggleExpanded() {
	if len(c.chunks) == 0 {
		c.expanded = false
		return
	}
	c.expanded = !c.expanded
}

// Expanded reports whether the selected chunk is shown in full.
func (c *ChunkList) Expanded() bool {
	return c.expanded
}

// SetDimensions sets the component dimensions.
func (c *ChunkList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of chunks.
func (c *ChunkList) Count() int {
	return len(c.chunks)
}
