package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/kbase/ai"
)

// EmbedBatches splits texts into sub-batches of batchSize, embeds them
// concurrently on pool and returns the vectors in input order. Any failed
// sub-batch fails the whole call.
func EmbedBatches(ctx context.Context, pool *ants.Pool, embedder ai.Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize < 1 {
		batchSize = 1
	}
	vectors := make([][]float32, len(texts))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			batch, err := embedder.EmbedTexts(ctx, texts[start:end])
			if err == nil && len(batch) != end-start {
				err = fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
			}
			if err != nil {
				fail(err)
				return
			}
			copy(vectors[start:end], batch)
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return vectors, nil
}
