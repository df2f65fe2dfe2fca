package domain

import "fmt"

// ChunkUnit selects what a chunk's size and overlap are measured in.
type ChunkUnit string

// Available chunk units.
const (
	// ChunkUnitChars measures chunks in characters (Unicode code points).
	ChunkUnitChars ChunkUnit = "chars"

	// ChunkUnitWords measures chunks in whitespace-separated words.
	ChunkUnitWords ChunkUnit = "words"
)

// IsValid returns true if the unit is recognised.
func (u ChunkUnit) IsValid() bool {
	return u == ChunkUnitChars || u == ChunkUnitWords
}

// String returns the string representation.
func (u ChunkUnit) String() string {
	return string(u)
}

// ChunkParams are the chunking parameters an index is built with.
type ChunkParams struct {
	// Unit is the measure for Size and Overlap.
	Unit ChunkUnit `json:"unit"`

	// Size bounds chunk length in Unit.
	Size int `json:"size"`

	// Overlap is the number of trailing units repeated at the start of the next chunk.
	Overlap int `json:"overlap"`
}

// Validate checks 0 <= Overlap < Size and a known unit.
func (p ChunkParams) Validate() error {
	if !p.Unit.IsValid() {
		return fmt.Errorf("%w: unknown chunk unit %q", ErrInvalidParameter, p.Unit)
	}
	if p.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidParameter, p.Size)
	}
	if p.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidParameter, p.Overlap)
	}
	if p.Overlap >= p.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than size %d", ErrInvalidParameter, p.Overlap, p.Size)
	}
	return nil
}

// String renders the parameters for logs and reports.
func (p ChunkParams) String() string {
	return fmt.Sprintf("%d %s (overlap %d)", p.Size, p.Unit, p.Overlap)
}
