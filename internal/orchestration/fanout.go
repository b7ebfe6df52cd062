package orchestration

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut runs task once per item, at most limit at a time (limit <= 0 means
// one goroutine per item), and returns the results indexed like items.
//
// Tasks report their own failures in-band through R; a task returns an
// error only when ctx is done. Once ctx is done, tasks that have not
// started are skipped and fanOut returns ctx.Err() right away without
// waiting for in-flight tasks, whose results are discarded.
func fanOut[T, R any](ctx context.Context, items []T, limit int, task func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	done := make(chan error, 1)
	go func() {
		for i, item := range items {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, err := task(gctx, i, item)
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
