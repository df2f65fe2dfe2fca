package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure ManifestStore implements the interface.
var _ driven.ManifestStore = ManifestStore{}

// ManifestStore reads and writes index manifests as TOML.
type ManifestStore struct{}

// manifestFile is the on-disk shape of domain.Manifest.
type manifestFile struct {
	Version   int       `toml:"version"`
	BuildID   string    `toml:"build_id"`
	Revision  string    `toml:"revision"`
	CreatedAt time.Time `toml:"created_at"`
	UpdatedAt time.Time `toml:"updated_at"`

	Embedder struct {
		Model      string `toml:"model"`
		Dimensions int    `toml:"dimensions"`
	} `toml:"embedder"`

	Index struct {
		Metric    string `toml:"metric"`
		Vectors   int    `toml:"vectors"`
		Retracted int    `toml:"retracted"`
		Documents int    `toml:"documents"`
	} `toml:"index"`

	Chunking struct {
		Unit    string `toml:"unit"`
		Size    int    `toml:"size"`
		Overlap int    `toml:"overlap"`
	} `toml:"chunking"`
}

// Read parses and validates the manifest at path.
func (ManifestStore) Read(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrIndexCorrupt, path, err)
	}

	var f manifestFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrIndexCorrupt, path, err)
	}

	m := domain.Manifest{
		Version:  f.Version,
		BuildID:  f.BuildID,
		Revision: f.Revision,
		Embedder: domain.EmbedderIdentity{
			Model:      f.Embedder.Model,
			Dimensions: f.Embedder.Dimensions,
		},
		Metric: domain.Metric(f.Index.Metric),
		Chunking: domain.ChunkParams{
			Unit:    domain.ChunkUnit(f.Chunking.Unit),
			Size:    f.Chunking.Size,
			Overlap: f.Chunking.Overlap,
		},
		VectorCount:    f.Index.Vectors,
		RetractedCount: f.Index.Retracted,
		DocumentCount:  f.Index.Documents,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Write stores m at path via a temporary file and rename.
func (ManifestStore) Write(path string, m domain.Manifest) error {
	var f manifestFile
	f.Version = m.Version
	f.BuildID = m.BuildID
	f.Revision = m.Revision
	f.CreatedAt = m.CreatedAt.UTC()
	f.UpdatedAt = m.UpdatedAt.UTC()
	f.Embedder.Model = m.Embedder.Model
	f.Embedder.Dimensions = m.Embedder.Dimensions
	f.Index.Metric = string(m.Metric)
	f.Index.Vectors = m.VectorCount
	f.Index.Retracted = m.RetractedCount
	f.Index.Documents = m.DocumentCount
	f.Chunking.Unit = string(m.Chunking.Unit)
	f.Chunking.Size = m.Chunking.Size
	f.Chunking.Overlap = m.Chunking.Overlap

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}
