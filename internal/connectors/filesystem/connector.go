// Package filesystem provides a DocumentSource over a local directory tree.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Verify interface compliance.
var _ driven.DocumentSource = (*Connector)(nil)

// maxFileSize bounds the files Scan reads into memory.
const maxFileSize = 32 << 20

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("connector closed")

// Connector reads documents from a directory tree.
// Document IDs are slash-separated paths relative to the root.
type Connector struct {
	rootPath   string
	normaliser driven.Normaliser

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a connector rooted at rootPath. Files are read through
// normaliser; files it does not support are ignored.
func New(rootPath string, normaliser driven.Normaliser) *Connector {
	if abs, err := filepath.Abs(rootPath); err == nil && rootPath != "" {
		rootPath = abs
	}
	return &Connector{
		rootPath:   rootPath,
		normaliser: normaliser,
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// Root returns the absolute root directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks that the root exists and is a readable directory.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(c.rootPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: root path %s does not exist", domain.ErrNotFound, c.rootPath)
	}
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root path %s is not a directory", domain.ErrInvalidParameter, c.rootPath)
	}

	f, err := os.Open(c.rootPath)
	if err != nil {
		return fmt.Errorf("root path not readable: %w", err)
	}
	return f.Close()
}

// Scan walks the tree and returns every supported, non-hidden file as a
// document, ordered by ID. Files that cannot be read are skipped and
// returned as warnings.
func (c *Connector) Scan(ctx context.Context) ([]domain.Document, []error, error) {
	if err := c.Validate(ctx); err != nil {
		return nil, nil, err
	}

	var (
		docs     []domain.Document
		warnings []error
	)

	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == c.rootPath {
				return walkErr
			}
			warnings = append(warnings, fmt.Errorf("%s: %w", c.relative(path), walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != c.rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !c.normaliser.Supports(path) {
			return nil
		}

		doc, err := c.readDocument(ctx, path)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", c.relative(path), err))
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("scan %s: %w", c.rootPath, err)
	}

	logger.Debug("Scanned %s: %d documents, %d skipped", c.rootPath, len(docs), len(warnings))
	return docs, warnings, nil
}

func (c *Connector) readDocument(ctx context.Context, path string) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, err
	}
	if info.Size() > maxFileSize {
		return domain.Document{}, fmt.Errorf("file too large (%d bytes)", info.Size())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	text, err := c.normaliser.Normalise(ctx, path, raw)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.NewDocument(c.relative(path), path, text), nil
}

// Watch reports file changes under the root until ctx is cancelled or the
// connector is closed. Directories created later are watched as well.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.DocumentChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.watcher != nil {
		return nil, fmt.Errorf("%w: already watching %s", domain.ErrInvalidParameter, c.rootPath)
	}
	if err := c.Validate(ctx); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addRecursive(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan domain.DocumentChange, 100)
	go c.run(ctx, watcher, changes)
	return changes, nil
}

func (c *Connector) run(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- domain.DocumentChange) {
	defer close(changes)
	defer c.stopWatching(watcher)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			change := c.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error on %s: %v", c.rootPath, err)
		}
	}
}

func (c *Connector) stopWatching(watcher *fsnotify.Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == watcher {
		_ = watcher.Close()
		c.watcher = nil
	}
}

// handleFsEvent maps a filesystem event to a document change.
// It returns nil for events that do not affect any document.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.DocumentChange {
	rel := c.relative(event.Name)
	if rel == "." || isHidden(rel) {
		return nil
	}

	var changeType domain.ChangeType
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			c.watchDir(event.Name)
			return nil
		}
		changeType = domain.ChangeCreated
	case event.Has(fsnotify.Write):
		changeType = domain.ChangeUpdated
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A removed directory has no extension; report it so its documents are pruned.
		if !c.normaliser.Supports(event.Name) && filepath.Ext(event.Name) != "" {
			return nil
		}
		return &domain.DocumentChange{Type: domain.ChangeDeleted, DocumentID: rel, URI: event.Name}
	default:
		return nil
	}

	if !c.normaliser.Supports(event.Name) {
		return nil
	}
	return &domain.DocumentChange{Type: changeType, DocumentID: rel, URI: event.Name}
}

func (c *Connector) watchDir(path string) {
	c.mu.Lock()
	watcher := c.watcher
	c.mu.Unlock()
	if watcher == nil {
		return
	}
	if err := addRecursive(watcher, path); err != nil {
		logger.Warn("Cannot watch %s: %v", path, err)
	}
}

// Close stops any active watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func (c *Connector) relative(path string) string {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// addRecursive watches dir and every non-hidden directory below it.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
