package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// analyzeParallel fans chunks out to Workers goroutines and folds their results
// back in chunk order. At most 2×Workers chunks are read but not yet folded.
func (e *Engine) analyzeParallel(ctx context.Context, src Source, r *run) error {
	workers := e.opts.Workers
	chunks := make(chan chunk)
	results := make(chan chunkResult, workers)
	tokens := make(chan struct{}, 2*workers)

	g, gctx := errgroup.WithContext(ctx)

	var readErr error
	g.Go(func() error {
		defer close(chunks)
		readErr = e.read(gctx, src, func(c chunk) bool {
			select {
			case tokens <- struct{}{}:
			case <-gctx.Done():
				return false
			}
			select {
			case chunks <- c:
				return true
			case <-gctx.Done():
				return false
			}
		})
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for c := range chunks {
				res := e.process(c)
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(results)
	}()

	pending := make(map[int]chunkResult)
	next := 0
	for res := range results {
		pending[res.index] = res
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			r.fold(p)
			<-tokens
			next++
		}
	}

	if err := <-waitErr; err != nil {
		return err
	}
	return readErr
}
