package poll

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/domain"
)

// Searcher is the part of scrape.Service the warm run needs.
type Searcher interface {
	Search(ctx context.Context, slug string, q domain.Query) (domain.Page, error)
}

type WarmResult struct {
	Pages    int
	Jobs     int
	Failures map[string]string
}

// WarmOnce loads the first unfiltered page of every warm company so the next visitor hits the cache.
func WarmOnce(ctx context.Context, s Searcher, cfg config.Config) WarmResult {
	limit := cfg.Fetch.CompanyConcurrency
	if limit <= 0 {
		limit = config.DefaultCompanyFanout
	}

	var (
		mu  sync.Mutex
		res = WarmResult{Failures: map[string]string{}}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, slug := range cfg.Polling.WarmCompanies {
		g.Go(func() error {
			start := time.Now()
			p, err := s.Search(gctx, slug, domain.Query{Page: 1})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[warm] company=%q err=%v", slug, err)
				res.Failures[slug] = err.Error()
				return nil
			}
			res.Pages++
			res.Jobs += len(p.Jobs)
			log.Printf("[warm] company=%q jobs=%d cached=%v dur=%s", slug, len(p.Jobs), p.Cached, time.Since(start).Round(time.Millisecond))
			return nil
		})
	}
	_ = g.Wait()
	return res
}
