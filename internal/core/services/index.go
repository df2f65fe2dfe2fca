package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// defaultEmbedBatch is the number of chunks sent to the embedder per call.
const defaultEmbedBatch = 64

// IndexConfig configures an IndexService.
type IndexConfig struct {
	// DataDir holds the versioned index directory.
	DataDir string

	// Metric is used for new indexes.
	Metric domain.Metric

	// Chunking is used for new indexes.
	Chunking domain.ChunkParams

	// EmbedBatchSize is the number of chunks per embedding call (default: 64).
	EmbedBatchSize int
}

// IndexService owns the persisted index triad: vectors, sidecar, and manifest.
// Mutations stage a complete copy and swap it into place; readers never see
// a partially written index.
type IndexService struct {
	dataDir    string
	indexDir   string
	metric     domain.Metric
	chunking   domain.ChunkParams
	embedBatch int

	chunker   driven.Chunker
	embedder  driven.EmbeddingService
	newIndex  driven.VectorIndexFactory
	sidecars  driven.SidecarOpener
	manifests driven.ManifestStore

	lock *dirLock
	now  func() time.Time

	cacheMu sync.Mutex
	cache   *Snapshot
}

// NewIndexService creates an index service over cfg.DataDir.
func NewIndexService(
	cfg IndexConfig,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	newIndex driven.VectorIndexFactory,
	sidecars driven.SidecarOpener,
	manifests driven.ManifestStore,
) (*IndexService, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidParameter)
	}
	if !cfg.Metric.IsValid() {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidParameter, cfg.Metric)
	}
	if err := cfg.Chunking.Validate(); err != nil {
		return nil, err
	}
	if chunker == nil || embedder == nil || newIndex == nil || sidecars == nil || manifests == nil {
		return nil, errors.New("index service: missing dependency")
	}

	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	indexDir := filepath.Join(dataDir, IndexDirName)

	batch := cfg.EmbedBatchSize
	if batch <= 0 {
		batch = defaultEmbedBatch
	}

	return &IndexService{
		dataDir:    dataDir,
		indexDir:   indexDir,
		metric:     cfg.Metric,
		chunking:   cfg.Chunking,
		embedBatch: batch,
		chunker:    chunker,
		embedder:   embedder,
		newIndex:   newIndex,
		sidecars:   sidecars,
		manifests:  manifests,
		lock:       lockFor(indexDir),
		now:        time.Now,
	}, nil
}

// Path returns the index directory.
func (s *IndexService) Path() string {
	return s.indexDir
}

// identity returns the configured embedder identity.
func (s *IndexService) identity() domain.EmbedderIdentity {
	return domain.EmbedderIdentity{
		Model:      s.embedder.ModelName(),
		Dimensions: s.embedder.Dimensions(),
	}
}

// Build replaces the index with one built from docs.
func (s *IndexService) Build(
	ctx context.Context, docs []domain.Document, opts domain.BuildOptions,
) (*domain.BuildReport, error) {
	logger.Section("Index Build")
	defer logger.Elapsed("Build", time.Now())

	unlock, err := s.lock.acquireWriter(opts.NoWait)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := checkDocuments(docs); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s.recoverStale()

	snap, err := s.emptySnapshot()
	if err != nil {
		return nil, err
	}
	logger.Debug("Build %s: %d documents, embedder %s, metric %s, chunking %s",
		snap.Manifest.BuildID, len(docs), snap.Manifest.Embedder, s.metric, s.chunking)

	chunks, err := s.appendDocuments(ctx, snap, docs)
	if err != nil {
		logger.Warn("Build aborted: %v", err)
		return nil, err
	}
	snap.syncCounts()

	if err := s.persist(ctx, snap); err != nil {
		logger.Warn("Build aborted: %v", err)
		return nil, err
	}

	logger.Info("Built index %s: %d documents, %d chunks", snap.Manifest.BuildID, len(docs), chunks)
	return &domain.BuildReport{
		BuildID:   snap.Manifest.BuildID,
		Documents: len(docs),
		Chunks:    chunks,
	}, nil
}

// IngestIncremental embeds new and changed documents and appends them.
// Chunks of changed documents are retracted before their replacements are added.
func (s *IndexService) IngestIncremental(
	ctx context.Context, docs []domain.Document, opts domain.IngestOptions,
) (*domain.IngestReport, error) {
	logger.Section("Incremental Ingest")
	defer logger.Elapsed("Ingest", time.Now())

	unlock, err := s.lock.acquireWriter(opts.NoWait)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := checkDocuments(docs); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s.recoverStale()

	snap, err := s.loadWritable(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{}
	incoming := make(map[string]bool, len(docs))
	var pending []domain.Document

	for _, doc := range docs {
		incoming[doc.ID] = true
		doc.Hash = domain.HashContent(doc.Content)

		rec, known := snap.Documents[doc.ID]
		switch {
		case !known:
			report.Added++
			pending = append(pending, doc)
		case rec.Hash == doc.Hash:
			report.Unchanged++
		default:
			report.Updated++
			report.ChunksRetracted += snap.retractDocument(doc.ID)
			pending = append(pending, doc)
		}
	}

	if opts.Prune {
		for id := range snap.Documents {
			if incoming[id] {
				continue
			}
			report.Removed++
			report.ChunksRetracted += snap.retractDocument(id)
			delete(snap.Documents, id)
		}
	}

	logger.Debug("Classified: %d added, %d updated, %d unchanged, %d removed",
		report.Added, report.Updated, report.Unchanged, report.Removed)

	added, err := s.appendDocuments(ctx, snap, pending)
	if err != nil {
		logger.Warn("Ingest aborted: %v", err)
		return nil, err
	}
	report.ChunksAdded = added

	return s.finishMutation(ctx, snap, report, opts.Compact)
}

// Remove retracts every chunk of the given documents.
func (s *IndexService) Remove(
	ctx context.Context, ids []string, opts domain.IngestOptions,
) (*domain.IngestReport, error) {
	logger.Section("Remove Documents")

	unlock, err := s.lock.acquireWriter(opts.NoWait)
	if err != nil {
		return nil, err
	}
	defer unlock()
	s.recoverStale()

	snap, err := s.loadSnapshot(ctx, s.indexDir)
	if err != nil {
		return nil, err
	}
	if err := s.checkCompatible(snap.Manifest); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, ok := snap.Documents[id]; !ok {
			return nil, fmt.Errorf("%w: document %q", domain.ErrNotFound, id)
		}
	}

	report := &domain.IngestReport{}
	for _, id := range ids {
		if _, ok := snap.Documents[id]; !ok {
			continue
		}
		report.Removed++
		report.ChunksRetracted += snap.retractDocument(id)
		delete(snap.Documents, id)
	}

	return s.finishMutation(ctx, snap, report, opts.Compact)
}

// Compact rewrites the index without retracted vectors.
func (s *IndexService) Compact(ctx context.Context, opts domain.IngestOptions) (*domain.IngestReport, error) {
	logger.Section("Compact Index")

	unlock, err := s.lock.acquireWriter(opts.NoWait)
	if err != nil {
		return nil, err
	}
	defer unlock()
	s.recoverStale()

	snap, err := s.loadSnapshot(ctx, s.indexDir)
	if err != nil {
		return nil, err
	}

	return s.finishMutation(ctx, snap, &domain.IngestReport{}, true)
}

// finishMutation optionally compacts snap and persists it when anything changed.
func (s *IndexService) finishMutation(
	ctx context.Context, snap *Snapshot, report *domain.IngestReport, compact bool,
) (*domain.IngestReport, error) {
	if compact && snap.retracted() > 0 {
		compacted, err := s.compact(ctx, snap)
		if err != nil {
			return nil, err
		}
		snap = compacted
		report.Compacted = true
	}

	if !report.Changed() {
		logger.Info("Index unchanged")
		return report, nil
	}

	snap.Manifest.Revision = uuid.NewString()
	snap.Manifest.UpdatedAt = s.now()
	snap.syncCounts()

	if err := s.persist(ctx, snap); err != nil {
		logger.Warn("Mutation aborted: %v", err)
		return nil, err
	}

	logger.Info("Index updated: +%d chunks, -%d chunks, %d live",
		report.ChunksAdded, report.ChunksRetracted, snap.Manifest.LiveCount())
	return report, nil
}

// loadWritable loads the live index for modification, or starts an empty
// one when none exists yet. The manifest must match the configured embedder.
func (s *IndexService) loadWritable(ctx context.Context) (*Snapshot, error) {
	snap, err := s.loadSnapshot(ctx, s.indexDir)
	if errors.Is(err, domain.ErrIndexNotFound) {
		logger.Debug("No index at %s, starting a new one", s.indexDir)
		return s.emptySnapshot()
	}
	if err != nil {
		return nil, err
	}
	if err := s.checkCompatible(snap.Manifest); err != nil {
		return nil, err
	}
	return snap, nil
}

// checkCompatible rejects appending to an index built with different parameters.
func (s *IndexService) checkCompatible(m domain.Manifest) error {
	if err := m.CheckEmbedder(s.identity()); err != nil {
		return err
	}
	if m.Metric != s.metric {
		return fmt.Errorf("%w: index uses metric %s, configured metric is %s; rebuild required",
			domain.ErrInvalidParameter, m.Metric, s.metric)
	}
	if m.Chunking != s.chunking {
		return fmt.Errorf("%w: index chunked with %s, configured chunking is %s; rebuild required",
			domain.ErrInvalidParameter, m.Chunking, s.chunking)
	}
	return nil
}

// appendDocuments chunks and embeds docs and appends them to snap.
// Embedding runs in batches; cancellation is checked between batches.
func (s *IndexService) appendDocuments(ctx context.Context, snap *Snapshot, docs []domain.Document) (int, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		docChunks, err := s.chunker.Chunk(doc, snap.Manifest.Chunking)
		if err != nil {
			return 0, fmt.Errorf("chunk %s: %w", doc.ID, err)
		}
		chunks = append(chunks, docChunks...)

		snap.Documents[doc.ID] = domain.DocumentRecord{
			ID:         doc.ID,
			URI:        doc.URI,
			Hash:       domain.HashContent(doc.Content),
			Chunks:     len(docChunks),
			IngestedAt: s.now(),
		}
	}
	logger.Debug("Chunked %d documents into %d chunks", len(docs), len(chunks))

	dims := snap.Manifest.Embedder.Dimensions
	for start := 0; start < len(chunks); start += s.embedBatch {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		end := min(start+s.embedBatch, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
			ids[i] = c.ID
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
				domain.ErrArityMismatch, len(vectors), len(batch))
		}
		for i, v := range vectors {
			if len(v) != dims {
				return 0, fmt.Errorf("%w: embedder returned %d dimensions for chunk %s, index has %d",
					domain.ErrEmbedderMismatch, len(v), ids[i], dims)
			}
		}

		base := snap.Index.Size()
		if err := snap.Index.Add(ctx, vectors, ids); err != nil {
			return 0, fmt.Errorf("add vectors: %w", err)
		}
		for i, c := range batch {
			snap.Entries = append(snap.Entries, domain.IndexEntry{Position: base + i, Chunk: c})
		}
		logger.Debug("Embedded chunks %d-%d of %d", start, end, len(chunks))
	}

	return len(chunks), nil
}

// persist stages snap and swaps it into place.
func (s *IndexService) persist(ctx context.Context, snap *Snapshot) error {
	staging, err := s.writeStaging(ctx, snap)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = os.RemoveAll(staging)
		return err
	}
	return s.promote(staging)
}

// CheckHealth inspects the persisted index without modifying it.
// Problems are reported in the result; only cancellation returns an error.
func (s *IndexService) CheckHealth(ctx context.Context) (*domain.HealthReport, error) {
	logger.Section("Health Check")

	s.lock.rw.RLock()
	defer s.lock.rw.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := pathsIn(s.indexDir)
	report := &domain.HealthReport{Path: p.dir}

	info, err := os.Stat(p.dir)
	if errors.Is(err, os.ErrNotExist) {
		// Nothing persisted, so nothing can disagree.
		report.Consistent = true
		return report, nil
	}
	report.Exists = true
	if err != nil || !info.IsDir() {
		report.Problems = append(report.Problems, "index path is not a readable directory")
		return report, nil
	}

	report.IndexFileExists = fileExists(p.vectors)
	report.SidecarExists = fileExists(p.sidecar)
	report.ManifestExists = fileExists(p.manifest)

	readable := true
	var manifest *domain.Manifest

	if report.ManifestExists {
		m, err := s.manifests.Read(p.manifest)
		if err != nil {
			readable = false
			report.Problems = append(report.Problems, fmt.Sprintf("manifest: %v", err))
		} else {
			manifest = m
			report.Dimensions = m.Embedder.Dimensions
			report.Metric = m.Metric
			report.Model = m.Embedder.Model
			report.BuildID = m.BuildID
			report.Chunking = m.Chunking
			if err := m.CheckEmbedder(s.identity()); err != nil {
				report.Problems = append(report.Problems, err.Error())
			} else {
				report.ManifestOK = true
			}
		}
	} else {
		report.Problems = append(report.Problems, "manifest file missing")
	}

	var idx driven.VectorIndex
	if report.IndexFileExists {
		dims := s.embedder.Dimensions()
		if manifest != nil && manifest.Embedder.Dimensions > 0 {
			dims = manifest.Embedder.Dimensions
		}
		var err error
		idx, err = s.newIndex(dims, s.metric)
		if err == nil {
			err = idx.Load(p.vectors)
		}
		if err != nil {
			readable = false
			idx = nil
			report.Problems = append(report.Problems, fmt.Sprintf("vectors: %v", err))
		} else {
			report.VectorCount = idx.Size()
		}
	} else {
		report.Problems = append(report.Problems, "vector index file missing")
	}

	if report.SidecarExists {
		if err := s.inspectSidecar(ctx, p.sidecar, report); err != nil {
			readable = false
			report.Problems = append(report.Problems, fmt.Sprintf("sidecar: %v", err))
		}
	} else {
		report.Problems = append(report.Problems, "sidecar file missing")
	}

	report.Consistent = report.IndexFileExists && report.SidecarExists && report.ManifestExists && readable
	if report.Consistent {
		report.Consistent = compareTriad(idx, manifest, report)
	}

	logger.Debug("Health: status=%s vectors=%d sidecar=%d retracted=%d consistent=%t",
		report.Status(), report.VectorCount, report.SidecarCount, report.RetractedCount, report.Consistent)
	return report, nil
}

// inspectSidecar fills sidecar counts and per-source statistics.
func (s *IndexService) inspectSidecar(ctx context.Context, path string, report *domain.HealthReport) error {
	sidecar, err := s.sidecars.Open(ctx, path)
	if err != nil {
		return err
	}
	defer sidecar.Close()

	total, retracted, err := sidecar.Counts(ctx)
	if err != nil {
		return err
	}
	report.SidecarCount = total
	report.RetractedCount = retracted

	counts, err := sidecar.ChunkCounts(ctx)
	if err != nil {
		return err
	}
	records, err := sidecar.Documents(ctx)
	if err != nil {
		return err
	}
	report.DocumentCount = len(records)
	for _, rec := range records {
		report.Sources = append(report.Sources, domain.SourceStat{
			DocumentID: rec.ID,
			URI:        rec.URI,
			Chunks:     counts[rec.ID],
		})
	}
	return nil
}

// compareTriad records disagreements between the three files.
func compareTriad(idx driven.VectorIndex, m *domain.Manifest, report *domain.HealthReport) bool {
	ok := true
	mismatch := func(format string, args ...any) {
		ok = false
		report.Problems = append(report.Problems, fmt.Sprintf(format, args...))
	}

	if report.VectorCount != report.SidecarCount {
		mismatch("index holds %d vectors, sidecar holds %d entries", report.VectorCount, report.SidecarCount)
	}
	if m.VectorCount != report.VectorCount {
		mismatch("manifest records %d vectors, index holds %d", m.VectorCount, report.VectorCount)
	}
	if m.RetractedCount != report.RetractedCount {
		mismatch("manifest records %d retracted, sidecar holds %d", m.RetractedCount, report.RetractedCount)
	}
	if idx.Dimensions() != m.Embedder.Dimensions {
		mismatch("index has %d dimensions, manifest records %d", idx.Dimensions(), m.Embedder.Dimensions)
	}
	if idx.Metric() != m.Metric {
		mismatch("index metric %s, manifest records %s", idx.Metric(), m.Metric)
	}
	return ok
}

// Reset deletes the persisted index. A missing index is not an error.
func (s *IndexService) Reset(ctx context.Context) error {
	logger.Section("Index Reset")

	unlock, err := s.lock.acquireWriter(false)
	if err != nil {
		return err
	}
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.lock.rw.Lock()
	tombstone, err := s.retire(discardPrefix)
	s.dropCache()
	s.lock.rw.Unlock()
	if err != nil {
		return err
	}

	if tombstone == "" {
		logger.Info("No index at %s", s.indexDir)
	} else {
		logger.Info("Removed index at %s", s.indexDir)
	}
	s.removeTombstone(tombstone)
	s.cleanStale()
	return nil
}

// Documents returns the document registry.
func (s *IndexService) Documents(ctx context.Context) ([]domain.DocumentRecord, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.records(), nil
}

// Manifest returns the manifest of the current index.
func (s *IndexService) Manifest(ctx context.Context) (*domain.Manifest, error) {
	s.lock.rw.RLock()
	defer s.lock.rw.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.indexDir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, s.indexDir)
	}
	return s.manifests.Read(filepath.Join(s.indexDir, ManifestFile))
}

// Snapshot returns the current index, loading it from disk when the cached
// copy is missing or another writer has replaced it.
func (s *IndexService) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.lock.rw.RLock()
	defer s.lock.rw.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.indexDir); errors.Is(err, os.ErrNotExist) {
		s.dropCache()
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, s.indexDir)
	}

	manifest, err := s.manifests.Read(filepath.Join(s.indexDir, ManifestFile))
	if err != nil {
		return nil, asCorrupt(err)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.cache != nil && s.cache.Manifest.Revision == manifest.Revision {
		return s.cache, nil
	}

	logger.Debug("Loading index revision %s", manifest.Revision)
	snap, err := s.loadSnapshot(ctx, s.indexDir)
	if err != nil {
		s.cache = nil
		return nil, err
	}
	s.cache = snap
	return snap, nil
}

// Close releases the cached snapshot.
func (s *IndexService) Close() error {
	s.dropCache()
	return nil
}

func (s *IndexService) dropCache() {
	s.cacheMu.Lock()
	s.cache = nil
	s.cacheMu.Unlock()
}

// checkDocuments rejects empty and duplicate document ids.
func checkDocuments(docs []domain.Document) error {
	seen := make(map[string]bool, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			return fmt.Errorf("%w: document %d has no id", domain.ErrInvalidParameter, i)
		}
		if seen[doc.ID] {
			return fmt.Errorf("%w: duplicate document id %q", domain.ErrInvalidParameter, doc.ID)
		}
		seen[doc.ID] = true
	}
	return nil
}

func sortRecords(records []domain.DocumentRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
