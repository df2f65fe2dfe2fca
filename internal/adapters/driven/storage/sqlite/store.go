package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragstore/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure interfaces are implemented.
var (
	_ driven.SidecarStore  = (*Store)(nil)
	_ driven.SidecarOpener = Opener{}
)

// Store is a sidecar database handle.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Opener creates and opens sidecar databases.
type Opener struct{}

// Create creates a new sidecar at path and applies migrations.
func (Opener) Create(ctx context.Context, path string) (driven.SidecarStore, error) {
	return NewStore(ctx, path)
}

// Open opens an existing sidecar read-only.
func (Opener) Open(ctx context.Context, path string) (driven.SidecarStore, error) {
	return OpenReadOnly(ctx, path)
}

// NewStore creates or opens a writable sidecar at path and runs migrations.
func NewStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sidecar: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// OpenReadOnly opens an existing sidecar without creating or modifying it.
func OpenReadOnly(ctx context.Context, path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrIndexCorrupt, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrIndexCorrupt, path)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening sidecar: %w", domain.ErrIndexCorrupt, err)
	}

	s := &Store{db: db, path: path, readOnly: true}

	// The first query surfaces "file is not a database" and missing tables.
	var version int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIndexCorrupt, path, err)
	}
	if version < 1 {
		db.Close()
		return nil, fmt.Errorf("%w: %s: schema not initialised", domain.ErrIndexCorrupt, path)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(ctx context.Context, fsys embed.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_sidecar.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// Replace overwrites all entries and documents in a single transaction.
func (s *Store) Replace(ctx context.Context, entries []domain.IndexEntry, docs []domain.DocumentRecord) error {
	if s.readOnly {
		return errors.New("sidecar opened read-only")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}

	entryStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (position, chunk_id, document_id, sequence, content, start_offset, end_offset, retracted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer entryStmt.Close()

	for _, e := range entries {
		if _, err := entryStmt.ExecContext(ctx,
			e.Position, e.Chunk.ID, e.Chunk.DocumentID, e.Chunk.Sequence,
			e.Chunk.Content, e.Chunk.Start, e.Chunk.End, boolToInt(e.Retracted),
		); err != nil {
			return fmt.Errorf("inserting entry %d: %w", e.Position, err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, uri, content_hash, chunk_count, ingested_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()

	for _, d := range docs {
		if _, err := docStmt.ExecContext(ctx,
			d.ID, d.URI, d.Hash, d.Chunks, d.IngestedAt.UTC().UnixNano(),
		); err != nil {
			return fmt.Errorf("inserting document %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Entries returns all entries ordered by position.
func (s *Store) Entries(ctx context.Context) ([]domain.IndexEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, chunk_id, document_id, sequence, content, start_offset, end_offset, retracted
		FROM entries
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry
	for rows.Next() {
		var e domain.IndexEntry
		var retracted int
		if err := rows.Scan(
			&e.Position, &e.Chunk.ID, &e.Chunk.DocumentID, &e.Chunk.Sequence,
			&e.Chunk.Content, &e.Chunk.Start, &e.Chunk.End, &retracted,
		); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Retracted = retracted != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}

// Documents returns the registry ordered by id.
func (s *Store) Documents(ctx context.Context) ([]domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uri, content_hash, chunk_count, ingested_at
		FROM documents
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentRecord
	for rows.Next() {
		var d domain.DocumentRecord
		var ingestedAt int64
		if err := rows.Scan(&d.ID, &d.URI, &d.Hash, &d.Chunks, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.IngestedAt = time.Unix(0, ingestedAt).UTC()
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Counts returns the total number of entries and how many are retracted.
func (s *Store) Counts(ctx context.Context) (total, retracted int, err error) {
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(retracted), 0) FROM entries")
	if err := row.Scan(&total, &retracted); err != nil {
		return 0, 0, fmt.Errorf("counting entries: %w", err)
	}
	return total, retracted, nil
}

// ChunkCounts returns live chunk counts per document.
func (s *Store) ChunkCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, COUNT(*)
		FROM entries
		WHERE retracted = 0
		GROUP BY document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunk counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning chunk count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk counts: %w", err)
	}
	return counts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
