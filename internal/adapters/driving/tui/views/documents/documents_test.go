package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

type mockIndex struct {
	driving.IndexService
	docs      []domain.DocumentRecord
	docsErr   error
	health    *domain.HealthReport
	healthErr error
}

func (m *mockIndex) Documents(_ context.Context) ([]domain.DocumentRecord, error) {
	return m.docs, m.docsErr
}

func (m *mockIndex) CheckHealth(_ context.Context) (*domain.HealthReport, error) {
	return m.health, m.healthErr
}

func sampleDocs() []domain.DocumentRecord {
	ingested := time.Now().Add(-3 * time.Hour)
	return []domain.DocumentRecord{
		{ID: "notes/cat.md", Chunks: 4, IngestedAt: ingested},
		{ID: "notes/dog.md", Chunks: 2, IngestedAt: ingested},
	}
}

// runBatch executes every command in a tea.Batch and feeds the results back.
func runBatch(t *testing.T, v *View, cmd tea.Cmd) *View {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		v, _ = v.Update(msg)
		return v
	}
	for _, c := range batch {
		if c != nil {
			v, _ = v.Update(c())
		}
	}
	return v
}

func TestView_LoadsDocumentsAndHealth(t *testing.T) {
	index := &mockIndex{
		docs: sampleDocs(),
		health: &domain.HealthReport{
			Exists: true, IndexFileExists: true, SidecarExists: true, ManifestExists: true,
			ManifestOK: true, Consistent: true,
			VectorCount: 6, SidecarCount: 6, DocumentCount: 2,
			Model: "hash-v1", Dimensions: 384, Metric: domain.MetricCosine,
		},
	}
	v := NewView(nil, nil, index)
	v.SetDimensions(100, 30)

	v = runBatch(t, v, v.Init())

	require.NoError(t, v.Err())
	assert.Len(t, v.Documents(), 2)
	out := v.View()
	assert.Contains(t, out, "notes/cat.md")
	assert.Contains(t, out, "3 hours ago")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "6 live vectors")
	assert.Contains(t, out, "hash-v1")
}

func TestView_NoIndexIsEmpty(t *testing.T) {
	index := &mockIndex{
		docsErr: domain.ErrIndexNotFound,
		health:  &domain.HealthReport{Consistent: true},
	}
	v := NewView(nil, nil, index)

	v = runBatch(t, v, v.Init())

	require.NoError(t, v.Err())
	assert.Empty(t, v.Documents())
	assert.Contains(t, v.View(), "No documents indexed")
	assert.Contains(t, v.View(), "missing")
}

func TestView_LoadError(t *testing.T) {
	index := &mockIndex{docsErr: errors.New("registry locked"), health: &domain.HealthReport{}}
	v := NewView(nil, nil, index)

	v = runBatch(t, v, v.Init())

	assert.ErrorContains(t, v.Err(), "registry locked")
	assert.Contains(t, v.View(), "Error: registry locked")
}

func TestView_NilIndex(t *testing.T) {
	v := NewView(nil, nil, nil)

	assert.Nil(t, v.Init())
	assert.Contains(t, v.View(), "index status unknown")
}

func TestView_Navigation(t *testing.T) {
	v := NewView(nil, nil, &mockIndex{})
	v, _ = v.Update(messages.DocumentsLoaded{Documents: sampleDocs()})

	require.NotNil(t, v.SelectedDocument())
	assert.Equal(t, "notes/cat.md", v.SelectedDocument().ID)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "notes/dog.md", v.SelectedDocument().ID)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "notes/dog.md", v.SelectedDocument().ID)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, "notes/cat.md", v.SelectedDocument().ID)
}

func TestView_SelectionClampedOnReload(t *testing.T) {
	v := NewView(nil, nil, &mockIndex{})
	v, _ = v.Update(messages.DocumentsLoaded{Documents: sampleDocs()})
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})

	v, _ = v.Update(messages.DocumentsLoaded{Documents: sampleDocs()[:1]})
	require.NotNil(t, v.SelectedDocument())
	assert.Equal(t, "notes/cat.md", v.SelectedDocument().ID)

	v, _ = v.Update(messages.DocumentsLoaded{Documents: nil})
	assert.Nil(t, v.SelectedDocument())
}

func TestView_Keys(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want tea.Msg
	}{
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, messages.ViewChanged{View: messages.ViewQuery}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, messages.ViewChanged{View: messages.ViewQuery}},
		{"quit", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, tea.QuitMsg{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewView(nil, nil, &mockIndex{})
			_, cmd := v.Update(tt.msg)
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestView_Refresh(t *testing.T) {
	index := &mockIndex{health: &domain.HealthReport{}}
	v := NewView(nil, nil, index)
	v = runBatch(t, v, v.Init())
	assert.Empty(t, v.Documents())

	index.docs = sampleDocs()
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	v = runBatch(t, v, cmd)

	assert.Len(t, v.Documents(), 2)
}

func TestView_HealthError(t *testing.T) {
	v := NewView(nil, nil, &mockIndex{})
	v, _ = v.Update(messages.HealthLoaded{Err: errors.New("stat failed")})

	assert.ErrorContains(t, v.Err(), "stat failed")
}

func TestView_LongIDsTruncated(t *testing.T) {
	long := "very/deeply/nested/directory/structure/with/a/long/file/name.md"
	v := NewView(nil, nil, &mockIndex{})
	v.SetDimensions(50, 30)
	v, _ = v.Update(messages.DocumentsLoaded{Documents: []domain.DocumentRecord{{ID: long, Chunks: 1, IngestedAt: time.Now()}}})

	out := v.View()
	assert.NotContains(t, out, long)
	assert.Contains(t, out, "name.md")
}
