package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Persisted layout under the data directory.
const (
	// IndexDirName is the versioned index directory.
	IndexDirName = "index-v1"

	// VectorsFile holds the vector index artifact.
	VectorsFile = "vectors.idx"

	// SidecarFile holds the position to chunk mapping and the document registry.
	SidecarFile = "sidecar.db"

	// ManifestFile records how the index was built.
	ManifestFile = "manifest.toml"

	stagingPrefix   = ".staging-"
	tombstonePrefix = ".tombstone-"
	discardPrefix   = ".discard-"
)

// Snapshot is an in-memory view of a persisted index.
// Snapshots returned by IndexService.Snapshot must not be modified.
type Snapshot struct {
	Manifest  domain.Manifest
	Index     driven.VectorIndex
	Entries   []domain.IndexEntry
	Documents map[string]domain.DocumentRecord
}

// retracted returns the number of retracted entries.
func (s *Snapshot) retracted() int {
	n := 0
	for i := range s.Entries {
		if s.Entries[i].Retracted {
			n++
		}
	}
	return n
}

// retractDocument marks every live entry of docID as retracted.
func (s *Snapshot) retractDocument(docID string) int {
	n := 0
	for i := range s.Entries {
		e := &s.Entries[i]
		if e.Chunk.DocumentID == docID && !e.Retracted {
			e.Retracted = true
			n++
		}
	}
	return n
}

// records returns the document registry sorted by id.
func (s *Snapshot) records() []domain.DocumentRecord {
	out := make([]domain.DocumentRecord, 0, len(s.Documents))
	for _, rec := range s.Documents {
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

// syncCounts refreshes the manifest counters from the snapshot contents.
func (s *Snapshot) syncCounts() {
	s.Manifest.VectorCount = s.Index.Size()
	s.Manifest.RetractedCount = s.retracted()
	s.Manifest.DocumentCount = len(s.Documents)
}

// indexPaths names the files of one index directory.
type indexPaths struct {
	dir      string
	vectors  string
	sidecar  string
	manifest string
}

func pathsIn(dir string) indexPaths {
	return indexPaths{
		dir:      dir,
		vectors:  filepath.Join(dir, VectorsFile),
		sidecar:  filepath.Join(dir, SidecarFile),
		manifest: filepath.Join(dir, ManifestFile),
	}
}

// loadSnapshot reads the triad at dir and verifies it is consistent.
// A missing directory or manifest fails with ErrIndexNotFound; anything
// unreadable or disagreeing fails with ErrIndexCorrupt.
func (s *IndexService) loadSnapshot(ctx context.Context, dir string) (*Snapshot, error) {
	p := pathsIn(dir)

	if _, err := os.Stat(p.dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, p.dir)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
	}

	manifest, err := s.manifests.Read(p.manifest)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: manifest missing in %s", domain.ErrIndexCorrupt, p.dir)
		}
		return nil, err
	}

	idx, err := s.newIndex(manifest.Embedder.Dimensions, manifest.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
	}
	if err := idx.Load(p.vectors); err != nil {
		return nil, asCorrupt(err)
	}

	sidecar, err := s.sidecars.Open(ctx, p.sidecar)
	if err != nil {
		return nil, asCorrupt(err)
	}
	defer sidecar.Close()

	entries, err := sidecar.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read sidecar entries: %w", domain.ErrIndexCorrupt, err)
	}
	records, err := sidecar.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read document registry: %w", domain.ErrIndexCorrupt, err)
	}

	snap := &Snapshot{
		Manifest:  *manifest,
		Index:     idx,
		Entries:   entries,
		Documents: make(map[string]domain.DocumentRecord, len(records)),
	}
	for _, rec := range records {
		snap.Documents[rec.ID] = rec
	}

	if err := verifySnapshot(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// asCorrupt maps a missing file inside an existing index directory to
// ErrIndexCorrupt; the index exists but is incomplete.
func asCorrupt(err error) error {
	if errors.Is(err, domain.ErrIndexNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
	}
	return err
}

// verifySnapshot checks the vectors, sidecar, and manifest agree.
func verifySnapshot(snap *Snapshot) error {
	m := snap.Manifest
	idx := snap.Index

	if idx.Dimensions() != m.Embedder.Dimensions {
		return fmt.Errorf("%w: index has %d dimensions, manifest records %d",
			domain.ErrIndexCorrupt, idx.Dimensions(), m.Embedder.Dimensions)
	}
	if idx.Metric() != m.Metric {
		return fmt.Errorf("%w: index metric %s, manifest records %s", domain.ErrIndexCorrupt, idx.Metric(), m.Metric)
	}
	if idx.Size() != len(snap.Entries) {
		return fmt.Errorf("%w: %d vectors, %d sidecar entries", domain.ErrIndexCorrupt, idx.Size(), len(snap.Entries))
	}
	if idx.Size() != m.VectorCount {
		return fmt.Errorf("%w: %d vectors, manifest records %d", domain.ErrIndexCorrupt, idx.Size(), m.VectorCount)
	}
	if r := snap.retracted(); r != m.RetractedCount {
		return fmt.Errorf("%w: %d retracted entries, manifest records %d", domain.ErrIndexCorrupt, r, m.RetractedCount)
	}

	ids := idx.IDs()
	for i, e := range snap.Entries {
		if e.Position != i {
			return fmt.Errorf("%w: sidecar entry %d has position %d", domain.ErrIndexCorrupt, i, e.Position)
		}
		if ids[i] != e.Chunk.ID {
			return fmt.Errorf("%w: position %d holds %s in the index, %s in the sidecar",
				domain.ErrIndexCorrupt, i, ids[i], e.Chunk.ID)
		}
	}
	return nil
}

// emptySnapshot starts a new index for the configured embedder.
func (s *IndexService) emptySnapshot() (*Snapshot, error) {
	idx, err := s.newIndex(s.embedder.Dimensions(), s.metric)
	if err != nil {
		return nil, err
	}

	now := s.now()
	buildID := uuid.NewString()
	return &Snapshot{
		Manifest: domain.Manifest{
			Version:   domain.ManifestVersion,
			BuildID:   buildID,
			Revision:  buildID,
			Embedder:  s.identity(),
			Metric:    s.metric,
			Chunking:  s.chunking,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Index:     idx,
		Documents: make(map[string]domain.DocumentRecord),
	}, nil
}

// compact rebuilds snap without retracted entries, reusing stored vectors.
func (s *IndexService) compact(ctx context.Context, snap *Snapshot) (*Snapshot, error) {
	idx, err := s.newIndex(snap.Manifest.Embedder.Dimensions, snap.Manifest.Metric)
	if err != nil {
		return nil, err
	}

	live := make([]domain.IndexEntry, 0, len(snap.Entries))
	vectors := make([][]float32, 0, len(snap.Entries))
	ids := make([]string, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		if e.Retracted {
			continue
		}
		v, err := snap.Index.Vector(e.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: read vector %d: %w", domain.ErrIndexCorrupt, e.Position, err)
		}
		e.Position = len(live)
		live = append(live, e)
		vectors = append(vectors, v)
		ids = append(ids, e.Chunk.ID)
	}

	if len(vectors) > 0 {
		if err := idx.Add(ctx, vectors, ids); err != nil {
			return nil, fmt.Errorf("compact: %w", err)
		}
	}

	logger.Debug("Compacted %d entries to %d", len(snap.Entries), len(live))

	out := *snap
	out.Index = idx
	out.Entries = live
	return &out, nil
}

// writeStaging persists snap into a fresh staging directory next to the live index.
// The staging directory is removed on failure.
func (s *IndexService) writeStaging(ctx context.Context, snap *Snapshot) (staging string, err error) {
	staging = filepath.Join(s.dataDir, stagingPrefix+uuid.NewString())
	if err := os.MkdirAll(staging, 0700); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(staging)
		}
	}()

	p := pathsIn(staging)

	if err := snap.Index.Save(p.vectors); err != nil {
		return "", fmt.Errorf("save vectors: %w", err)
	}

	sidecar, err := s.sidecars.Create(ctx, p.sidecar)
	if err != nil {
		return "", fmt.Errorf("create sidecar: %w", err)
	}
	if err := sidecar.Replace(ctx, snap.Entries, snap.records()); err != nil {
		sidecar.Close()
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	if err := sidecar.Close(); err != nil {
		return "", fmt.Errorf("close sidecar: %w", err)
	}

	if err := s.manifests.Write(p.manifest, snap.Manifest); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return staging, nil
}

// promote swaps staging into place under the exclusive lock.
// The previous index is restored if the swap fails.
func (s *IndexService) promote(staging string) error {
	s.lock.rw.Lock()
	defer s.lock.rw.Unlock()

	tombstone, err := s.retire(tombstonePrefix)
	if err != nil {
		_ = os.RemoveAll(staging)
		return err
	}

	if err := os.Rename(staging, s.indexDir); err != nil {
		if tombstone != "" {
			if rerr := os.Rename(tombstone, s.indexDir); rerr != nil {
				logger.Warn("Failed to restore previous index from %s: %v", tombstone, rerr)
			}
		}
		_ = os.RemoveAll(staging)
		return fmt.Errorf("promote index: %w", err)
	}

	s.dropCache()
	s.removeTombstone(tombstone)
	return nil
}

// retire renames the live index directory to prefix plus a random suffix.
// Tombstones may be restored after a crash; discarded directories never are.
// It returns "" when there is no live index. Callers hold rw exclusively.
func (s *IndexService) retire(prefix string) (string, error) {
	if _, err := os.Stat(s.indexDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat index: %w", err)
	}

	retired := filepath.Join(s.dataDir, prefix+uuid.NewString())
	if err := os.Rename(s.indexDir, retired); err != nil {
		return "", fmt.Errorf("retire index: %w", err)
	}
	return retired, nil
}

func (s *IndexService) removeTombstone(tombstone string) {
	if tombstone == "" {
		return
	}
	if err := os.RemoveAll(tombstone); err != nil {
		logger.Warn("Failed to remove %s: %v", tombstone, err)
	}
}

// recoverStale finishes recovery from an interrupted process: a missing live index is
// restored from the newest tombstone, then leftover directories are removed.
// Callers hold the writer mutex.
func (s *IndexService) recoverStale() {
	s.restoreTombstone()
	s.cleanStale()
}

// restoreTombstone renames the newest complete tombstone back into place when the
// live index is missing. A process that dies between retiring the old index and
// promoting the new one leaves exactly that state.
func (s *IndexService) restoreTombstone() {
	if _, err := os.Stat(s.indexDir); !errors.Is(err, os.ErrNotExist) {
		return
	}
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), tombstonePrefix) {
			continue
		}
		dir := filepath.Join(s.dataDir, e.Name())
		if !fileExists(pathsIn(dir).manifest) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = dir, info.ModTime()
		}
	}
	if newest == "" {
		return
	}

	s.lock.rw.Lock()
	defer s.lock.rw.Unlock()
	if err := os.Rename(newest, s.indexDir); err != nil {
		logger.Warn("Failed to restore interrupted index from %s: %v", newest, err)
		return
	}
	s.dropCache()
	logger.Warn("Restored index from %s after an interrupted update", filepath.Base(newest))
}

// cleanStale removes staging, tombstone and discarded directories left by an
// interrupted process. Callers hold the writer mutex.
func (s *IndexService) cleanStale() {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !isStale(name) {
			continue
		}
		logger.Debug("Removing stale %s", name)
		if err := os.RemoveAll(filepath.Join(s.dataDir, name)); err != nil {
			logger.Warn("Failed to remove stale %s: %v", name, err)
		}
	}
}

func isStale(name string) bool {
	return strings.HasPrefix(name, stagingPrefix) ||
		strings.HasPrefix(name, tombstonePrefix) ||
		strings.HasPrefix(name, discardPrefix)
}
