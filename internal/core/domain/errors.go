package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameter indicates bad chunking or search arguments.
	// This is a caller error and should not be retried.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrEmbeddingUnavailable indicates the embedding service failed or is not configured.
	// Safe to retry with backoff at the caller's discretion.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrArityMismatch indicates vectors and ids (or embeddings and inputs) differ in count.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrEmbedderMismatch indicates the embedder's identity or dimensionality
	// disagrees with the index it is used against.
	ErrEmbedderMismatch = errors.New("embedder mismatch")

	// ErrIndexNotFound indicates no persisted index exists.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates the persisted index exists but cannot be read.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrEmptyIndex indicates retrieval against an index holding no live vectors.
	// This is distinct from a query whose results were all filtered by score.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrIndexBusy indicates another mutation holds the index and the caller asked not to wait.
	ErrIndexBusy = errors.New("index busy")
)

// ErrorKind is a stable, machine-readable name for an error category.
type ErrorKind string

// Error kinds exposed to driving adapters.
const (
	KindInvalidParameter     ErrorKind = "invalid_parameter"
	KindEmbeddingUnavailable ErrorKind = "embedding_unavailable"
	KindArityMismatch        ErrorKind = "arity_mismatch"
	KindEmbedderMismatch     ErrorKind = "embedder_mismatch"
	KindIndexNotFound        ErrorKind = "index_not_found"
	KindIndexCorrupt         ErrorKind = "index_corrupt"
	KindEmptyIndex           ErrorKind = "empty_index"
	KindIndexBusy            ErrorKind = "index_busy"
	KindNotFound             ErrorKind = "not_found"
	KindInternal             ErrorKind = "internal"
)

// kindOrder is checked in order; the first match wins.
// EmptyIndex precedes IndexNotFound because retrieval wraps both.
var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrEmptyIndex, KindEmptyIndex},
	{ErrInvalidParameter, KindInvalidParameter},
	{ErrEmbeddingUnavailable, KindEmbeddingUnavailable},
	{ErrArityMismatch, KindArityMismatch},
	{ErrEmbedderMismatch, KindEmbedderMismatch},
	{ErrIndexNotFound, KindIndexNotFound},
	{ErrIndexCorrupt, KindIndexCorrupt},
	{ErrIndexBusy, KindIndexBusy},
	{ErrNotFound, KindNotFound},
}

// KindOf classifies err into an ErrorKind. Nil errors yield an empty kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsRetryable reports whether the failure is transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) || errors.Is(err, ErrIndexBusy)
}
