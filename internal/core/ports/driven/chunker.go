package driven

import "github.com/custodia-labs/ragstore/internal/core/domain"

// Chunker splits document content into chunks.
// The same document and parameters always yield the same chunks and ids.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk splits doc. Invalid params fail with ErrInvalidParameter.
	Chunk(doc domain.Document, params domain.ChunkParams) ([]domain.Chunk, error)
}
