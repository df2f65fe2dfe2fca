package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return raw
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupports(t *testing.T) {
	normaliser := New()

	assert.True(t, normaliser.Supports("paper.pdf"))
	assert.True(t, normaliser.Supports("docs/REPORT.PDF"))
	assert.False(t, normaliser.Supports("notes.txt"))
	assert.False(t, normaliser.Supports("pdf"))
}

func TestNormalise_PagesJoinedByBlankLine(t *testing.T) {
	text, err := New().Normalise(context.Background(), "two-pages.pdf", readFixture(t, "two-pages.pdf"))
	require.NoError(t, err)

	pages := strings.Split(text, "\n\n")
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Cats sleep a lot.")
	assert.Contains(t, pages[1], "Dogs bark at night.")
}

func TestNormalise_SkipsEmptyPages(t *testing.T) {
	text, err := New().Normalise(context.Background(), "blank-middle.pdf", readFixture(t, "blank-middle.pdf"))
	require.NoError(t, err)

	pages := strings.Split(text, "\n\n")
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "First page.")
	assert.Contains(t, pages[1], "Third page.")
}

func TestNormalise_NotAPDF(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: nil},
		{name: "plain text", raw: []byte("just some text, no pdf header")},
		{name: "truncated", raw: readFixture(t, "two-pages.pdf")[:64]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Normalise(context.Background(), "broken.pdf", tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidParameter)
			assert.Contains(t, err.Error(), "broken.pdf")
		})
	}
}

func TestNormalise_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Normalise(ctx, "two-pages.pdf", readFixture(t, "two-pages.pdf"))
	assert.ErrorIs(t, err, context.Canceled)
}
