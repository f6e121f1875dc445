package dispatch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunPool executes fn for every item with at most capacity in flight and
// returns once all of them settle. Items are started in slice order:
// enqueueing blocks while the pool is full, so a sorted input keeps its
// start order. Errors are the callback's business; the pool never cancels
// siblings.
func RunPool[T any](ctx context.Context, capacity int, items []T, fn func(ctx context.Context, item T)) {
	if capacity <= 0 {
		capacity = 1
	}
	var g errgroup.Group
	g.SetLimit(capacity)
	for _, it := range items {
		it := it
		g.Go(func() error {
			fn(ctx, it)
			return nil
		})
	}
	_ = g.Wait()
}
