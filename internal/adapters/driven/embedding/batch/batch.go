// Package batch runs embedding requests in ordered, bounded-concurrency batches.
package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// EmbedFunc embeds one batch of texts.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Runner splits inputs into batches and runs them concurrently.
// Results are reassembled in input order.
type Runner struct {
	size        int
	concurrency int
	limiter     *rate.Limiter
}

// NewRunner creates a runner. requestsPerSecond <= 0 disables rate limiting.
func NewRunner(size, concurrency int, requestsPerSecond float64) *Runner {
	if size <= 0 {
		size = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	r := &Runner{size: size, concurrency: concurrency}
	if requestsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return r
}

// Run embeds texts with fn. Each batch must return exactly one vector per
// input or the whole run fails with ErrArityMismatch. The first error cancels
// outstanding batches.
func (r *Runner) Run(ctx context.Context, texts []string, fn EmbedFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([][]float32, len(texts))
	sem := make(chan struct{}, r.concurrency)
	errs := make(chan error, (len(texts)+r.size-1)/r.size)
	batches := 0

	for start := 0; start < len(texts); start += r.size {
		end := min(start+r.size, len(texts))
		batches++

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs <- ctx.Err()
			continue
		}

		go func(start, end int) {
			defer func() { <-sem }()
			errs <- r.runOne(ctx, texts[start:end], out[start:end], fn)
		}(start, end)
	}

	var firstErr error
	for i := 0; i < batches; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (r *Runner) runOne(ctx context.Context, texts []string, dst [][]float32, fn EmbedFunc) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	vectors, err := fn(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: %d embeddings for %d inputs", domain.ErrArityMismatch, len(vectors), len(texts))
	}
	copy(dst, vectors)
	return nil
}

// Classify wraps a Run failure for provider. Arity and dimension violations keep
// their own kind; anything else is a transient ErrEmbeddingUnavailable.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrArityMismatch) || errors.Is(err, domain.ErrEmbedderMismatch) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, provider, err)
}
