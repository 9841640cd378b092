package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docvec/ai"
	"github.com/poiesic/docvec/core"
)

// DefaultEmbeddingWorkers is the number of embedding calls in flight per pipeline.
const DefaultEmbeddingWorkers = 5

// EmbedAll embeds every text on pool and returns the vectors in input
// order. The first failed call cancels the remaining work and the whole
// batch fails with core.ErrEmbedding; no partial result is returned.
// Calls already running when a sibling fails are left to finish and their
// results are dropped.
func EmbedAll(ctx context.Context, pool *ants.Pool, embedder ai.Embedder, texts []string, retry RetryPolicy) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		vectors = make([][]float32, len(texts))
		wg      sync.WaitGroup
		once    sync.Once
		failure error
	)
	fail := func(err error) {
		once.Do(func() {
			failure = err
			cancel(err)
		})
	}

	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}

			vector, err := embedText(ctx, embedder, text, retry)
			if err != nil {
				fail(fmt.Errorf("passage %d: %w", i, err))
				return
			}
			vectors[i] = vector
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit passage %d: %w", i, err))
		}
	}
	wg.Wait()

	if failure != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, failure)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, context.Cause(ctx))
	}
	return vectors, nil
}

// embedOne embeds a single text under the retry policy.
func embedOne(ctx context.Context, embedder ai.Embedder, text string, retry RetryPolicy) ([]float32, error) {
	vector, err := embedText(ctx, embedder, text, retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	return vector, nil
}

func embedText(ctx context.Context, embedder ai.Embedder, text string, retry RetryPolicy) ([]float32, error) {
	var vector []float32
	err := retry.Do(ctx, func() error {
		v, err := embedder.EmbedText(ctx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return ErrEmptyVector
		}
		vector = v
		return nil
	})
	return vector, err
}
