package util

import (
	"context"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// EachLimit runs fn for i in [0,n) with at most limit in flight. Failures are logged under tag
// and counted; they never cancel the other items.
func EachLimit(ctx context.Context, tag string, n, limit int, fn func(ctx context.Context, i int) error) (failed int) {
	if n == 0 {
		return 0
	}
	if limit <= 0 {
		limit = n
	}

	var g errgroup.Group
	g.SetLimit(limit)

	var fails atomic.Int64
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			fails.Add(int64(n - i))
			break
		}
		g.Go(func() error {
			if err := fn(ctx, i); err != nil {
				fails.Add(1)
				log.Printf("[%s] item=%d err=%v", tag, i, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(fails.Load())
}
