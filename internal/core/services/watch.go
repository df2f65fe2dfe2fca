package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.WatchService = (*WatchService)(nil)

// defaultDebounce is used when no debounce interval is configured.
const defaultDebounce = 500 * time.Millisecond

// WatchService keeps the index in sync with a document source.
// Each settled burst of changes triggers a rescan and a pruning ingest,
// so deleted files are retracted and edited files re-embedded.
type WatchService struct {
	source   driven.DocumentSource
	index    driving.IndexService
	debounce time.Duration
}

// NewWatchService creates a watch service.
func NewWatchService(source driven.DocumentSource, index driving.IndexService, debounce time.Duration) *WatchService {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &WatchService{
		source:   source,
		index:    index,
		debounce: debounce,
	}
}

// Run performs an initial ingest, then re-ingests after each burst of changes
// until ctx is cancelled. Ingest failures are passed to onReport and do not
// stop the watch.
func (w *WatchService) Run(ctx context.Context, onReport func(*domain.IngestReport, error)) error {
	if onReport == nil {
		onReport = func(*domain.IngestReport, error) {}
	}

	if err := w.source.Validate(ctx); err != nil {
		return fmt.Errorf("validate source: %w", err)
	}

	changes, err := w.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.source.Root(), err)
	}

	logger.Info("Watching %s (debounce %s)", w.source.Root(), w.debounce)
	onReport(w.sync(ctx))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := 0

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case change, ok := <-changes:
			if !ok {
				timer.Stop()
				return nil
			}
			logger.Debug("Change: %s %s", change.Type, change.DocumentID)
			pending++
			timer.Reset(w.debounce)

		case <-timer.C:
			logger.Debug("Settled after %d changes", pending)
			pending = 0
			onReport(w.sync(ctx))
		}
	}
}

// sync rescans the source and ingests it with pruning.
func (w *WatchService) sync(ctx context.Context) (*domain.IngestReport, error) {
	docs, warnings, err := w.source.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", w.source.Root(), err)
	}
	for _, warn := range warnings {
		logger.Warn("Skipped: %v", warn)
	}

	return w.index.IngestIncremental(ctx, docs, domain.IngestOptions{Prune: true})
}
