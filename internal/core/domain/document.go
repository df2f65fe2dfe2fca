package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document represents source text submitted for indexing.
// It is immutable once ingested; a changed Hash supersedes the prior version.
type Document struct {
	// ID is the logical identifier (e.g. a path relative to the ingest root).
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Content is the full text content.
	Content string

	// Hash is the hex SHA-256 of Content.
	Hash string
}

// NewDocument creates a document and computes its content hash.
func NewDocument(id, uri, content string) Document {
	return Document{
		ID:      id,
		URI:     uri,
		Content: content,
		Hash:    HashContent(content),
	}
}

// HashContent returns the hex SHA-256 digest of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// EnsureHash returns the document's hash, computing it when unset.
func (d Document) EnsureHash() string {
	if d.Hash != "" {
		return d.Hash
	}
	return HashContent(d.Content)
}

// Chunk represents a contiguous slice of a document's text.
// Chunk IDs are derived from (document id, offset, length) so re-chunking
// the same document with the same parameters is idempotent.
type Chunk struct {
	// ID is the deterministic identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Sequence is the ordinal position within the document.
	Sequence int

	// Start is the inclusive character offset into the document.
	Start int

	// End is the exclusive character offset into the document.
	End int
}

// DocumentRecord is the registry entry for an ingested document.
type DocumentRecord struct {
	ID         string    `json:"id"`
	URI        string    `json:"uri"`
	Hash       string    `json:"hash"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// ChangeType indicates the type of change detected by a watcher.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// DocumentChange is a single change reported by a document source.
type DocumentChange struct {
	Type ChangeType

	// DocumentID is the logical id of the affected document.
	DocumentID string

	// URI is the affected location.
	URI string
}
