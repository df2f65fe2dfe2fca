// Package chunker provides a fixed-size sliding-window text chunker.
package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// chunkNamespace scopes chunk ids generated by this package.
var chunkNamespace = uuid.MustParse("5b0e7a52-8d0c-4c1e-9f0a-3c6f2f1d9e41")

// Processor splits document content into overlapping windows.
// Windows are measured in characters (code points) or whitespace-separated words.
type Processor struct{}

// New creates a new chunker.
func New() *Processor {
	return &Processor{}
}

// Name returns the chunker name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits doc into windows of params.Size units, each starting
// params.Size-params.Overlap units after the previous one. The final window
// ends exactly at the end of the content. Whitespace-only windows are dropped.
func (p *Processor) Chunk(doc domain.Document, params domain.ChunkParams) ([]domain.Chunk, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidParameter)
	}

	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil, nil
	}

	var spans []span
	switch params.Unit {
	case domain.ChunkUnitWords:
		spans = wordWindows(runes, params.Size, params.Overlap)
	default:
		spans = charWindows(len(runes), params.Size, params.Overlap)
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for _, s := range spans {
		text := string(runes[s.start:s.end])
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(doc.ID, s.start, s.end-s.start),
			DocumentID: doc.ID,
			Content:    text,
			Sequence:   len(chunks),
			Start:      s.start,
			End:        s.end,
		})
	}

	return chunks, nil
}

// ChunkID derives the deterministic id for a chunk of document docID
// starting at offset start with the given length in characters.
func ChunkID(docID string, start, length int) string {
	key := docID + "\x00" + strconv.Itoa(start) + "\x00" + strconv.Itoa(length)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

type span struct {
	start int
	end   int
}

func charWindows(n, size, overlap int) []span {
	step := size - overlap
	spans := make([]span, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		spans = append(spans, span{start: start, end: end})
		if end == n {
			break
		}
	}
	return spans
}

// wordWindows groups words into windows and maps them back to character
// offsets so chunk text keeps the original spacing.
func wordWindows(runes []rune, size, overlap int) []span {
	words := wordSpans(runes)
	if len(words) == 0 {
		return nil
	}

	step := size - overlap
	spans := make([]span, 0, len(words)/step+1)
	for first := 0; first < len(words); first += step {
		last := min(first+size, len(words))
		spans = append(spans, span{start: words[first].start, end: words[last-1].end})
		if last == len(words) {
			break
		}
	}
	return spans
}

func wordSpans(runes []rune) []span {
	var words []span
	start := -1
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, span{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, span{start: start, end: len(runes)})
	}
	return words
}
