package domain

import "fmt"

// DefaultTopK is the number of chunks returned when no k is given.
const DefaultTopK = 5

// IndexEntry pairs an index position with the chunk stored there.
type IndexEntry struct {
	// Position is the vector's position in the index.
	Position int

	// Chunk is the chunk embedded at Position.
	Chunk Chunk

	// Retracted marks entries superseded by re-ingestion or deletion.
	// Retracted vectors stay in the index but are excluded from search.
	Retracted bool
}

// ScoredEntry is an index entry matched by a similarity search.
type ScoredEntry struct {
	Entry IndexEntry
	Score float64
}

// RetrieveOptions configures a retrieval query.
type RetrieveOptions struct {
	// K is the maximum number of chunks. Zero selects the default.
	K int

	// MinScore filters results below the threshold when set.
	MinScore *float64
}

// Validate checks the options.
func (o RetrieveOptions) Validate() error {
	if o.K < 0 {
		return fmt.Errorf("%w: k must not be negative, got %d", ErrInvalidParameter, o.K)
	}
	if o.MinScore != nil && *o.MinScore != *o.MinScore {
		return fmt.Errorf("%w: min score is NaN", ErrInvalidParameter)
	}
	return nil
}

// RetrievedChunk is a single retrieval result.
type RetrievedChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Position   int     `json:"position"`
	Sequence   int     `json:"sequence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}
