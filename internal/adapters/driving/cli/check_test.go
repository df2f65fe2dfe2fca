package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func activeHealth() *domain.HealthReport {
	return &domain.HealthReport{
		Path:            "/data/index-v1",
		Exists:          true,
		IndexFileExists: true,
		SidecarExists:   true,
		ManifestExists:  true,
		ManifestOK:      true,
		Consistent:      true,
		VectorCount:     1200,
		SidecarCount:    1200,
		RetractedCount:  200,
		DocumentCount:   3,
		Model:           "hash-v1",
		Dimensions:      384,
		Metric:          domain.MetricCosine,
		Chunking:        domain.ChunkParams{Unit: domain.ChunkUnitChars, Size: 1000, Overlap: 200},
		BuildID:         "build-1",
		Sources: []domain.SourceStat{
			{DocumentID: "a.txt", Chunks: 1},
			{DocumentID: "notes/b.txt", Chunks: 999},
		},
	}
}

func TestCheckCmd_Active(t *testing.T) {
	env := setupTestServices(t)
	env.index.health = activeHealth()

	out, _, err := run(t, "check")
	require.NoError(t, err)

	assert.Contains(t, out, "Status:   ACTIVE")
	assert.Contains(t, out, "Vectors:          1,200")
	assert.Contains(t, out, "Live:             1,000")
	assert.Contains(t, out, "hash-v1 (384 dimensions)")
	assert.Contains(t, out, "1 chunk\n")
	assert.Contains(t, out, "999 chunks")
	assert.NotContains(t, out, "Problems")
}

func TestCheckCmd_Missing(t *testing.T) {
	env := setupTestServices(t)
	env.index.health = &domain.HealthReport{Path: "/data/index-v1", Consistent: true}

	out, _, err := run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "MISSING")
	assert.Contains(t, out, "No index found.")
}

func TestCheckCmd_UnhealthyExitsNonZero(t *testing.T) {
	env := setupTestServices(t)
	h := activeHealth()
	h.SidecarExists = false
	h.Consistent = false
	h.Problems = []string{"sidecar.db is missing"}
	env.index.health = h

	out, _, err := run(t, "check")
	require.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, err.Error(), string(domain.StatusIncomplete))
	assert.Contains(t, out, "sidecar.db is missing")
	assert.Contains(t, out, "ragstore reset")
}

func TestCheckCmd_JSON(t *testing.T) {
	env := setupTestServices(t)
	env.index.health = activeHealth()

	out, _, err := run(t, "check", "--json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "active", decoded["status"])
	assert.EqualValues(t, 1000, decoded["live_count"])
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "chunk", plural(1, "chunk"))
	assert.Equal(t, "chunks", plural(0, "chunk"))
	assert.Equal(t, "chunks", plural(2, "chunk"))
}
