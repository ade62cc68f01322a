package scrape

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"joblawn-engine/internal/cache"
	"joblawn-engine/internal/config"
	"joblawn-engine/internal/domain"
	"joblawn-engine/internal/events"
	"joblawn-engine/internal/rank"
	"joblawn-engine/internal/scrape/util"
	"joblawn-engine/internal/store"
)

var ErrUnknownCompany = errors.New("unknown company")

// Service answers listing requests: registry lookup, cache, fetch, scoring and run recording.
type Service struct {
	Cache  *cache.Tiered
	DB     *sql.DB     // optional; runs are not recorded without it
	Hub    *events.Hub // optional
	Logos  *Logos      // optional
	Client *util.Client

	state atomic.Pointer[serviceState]
}

type serviceState struct {
	reg         *Registry
	scorer      rank.Scorer
	timeout     time.Duration
	concurrency int
}

func NewService(cfg config.Config, client *util.Client, c *cache.Tiered) *Service {
	s := &Service{Cache: c, Client: client}
	s.Reload(cfg)
	return s
}

// Reload rebuilds the registry and scorer from cfg. In-flight requests finish on the old ones.
func (s *Service) Reload(cfg config.Config) {
	n := cfg.Fetch.CompanyConcurrency
	if n <= 0 {
		n = config.DefaultCompanyFanout
	}
	s.state.Store(&serviceState{
		reg:         NewRegistry(cfg, s.Client),
		scorer:      rank.YAMLScorer{Cfg: cfg},
		timeout:     cfg.FetchTimeout(),
		concurrency: n,
	})
}

func (s *Service) Registry() *Registry { return s.state.Load().reg }

// Search returns one page for one company, from cache when fresh.
func (s *Service) Search(ctx context.Context, slug string, q domain.Query) (domain.Page, error) {
	st := s.state.Load()
	board, co, ok := st.reg.Board(slug)
	if !ok {
		return domain.Page{}, fmt.Errorf("%w: %q", ErrUnknownCompany, slug)
	}

	key := s.Cache.PageKey(slug, q.CacheKey(slug))
	page, cached, err := cache.Fetch(ctx, s.Cache, key, func(lctx context.Context) (domain.Page, error) {
		return s.fetchFresh(lctx, st, board, co, q)
	})
	if err != nil {
		return domain.Page{}, err
	}
	page.Cached = cached
	return page, nil
}

type boardFetcher interface {
	Fetch(ctx context.Context, q domain.Query) (domain.Page, error)
}

func (s *Service) fetchFresh(ctx context.Context, st *serviceState, board boardFetcher, co config.Company, q domain.Query) (domain.Page, error) {
	if st.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, st.timeout)
		defer cancel()
	}

	start := time.Now()
	page, err := board.Fetch(ctx, q)
	dur := time.Since(start)

	run := store.FetchRun{
		Company:    co.Slug,
		Query:      q.CacheKey(co.Slug),
		StartedAt:  start,
		DurationMS: dur.Milliseconds(),
	}
	if err != nil {
		run.Error = err.Error()
		s.recordRun(ctx, run)
		log.Printf("[ats:%s] company=%q page=%d err=%v", co.Vendor, co.Slug, q.PageOrFirst(), err)
		return domain.Page{}, err
	}

	if page.Company == "" {
		page.Company = co.Slug
	}
	rank.Apply(st.scorer, page.Jobs)

	run.Jobs = len(page.Jobs)
	run.Total = page.Total
	s.recordRun(ctx, run)

	log.WithFields(log.Fields{
		"company": co.Slug,
		"vendor":  co.Vendor,
		"page":    page.Page,
		"jobs":    len(page.Jobs),
		"total":   page.Total,
		"dur_ms":  dur.Milliseconds(),
	}).Info("jobs fetched")
	s.Hub.Emit(ctx, events.TypeJobsFetched, map[string]any{
		"company":     co.Slug,
		"page":        page.Page,
		"jobs":        len(page.Jobs),
		"total":       page.Total,
		"duration_ms": dur.Milliseconds(),
	})
	return page, nil
}

func (s *Service) recordRun(ctx context.Context, run store.FetchRun) {
	if s.DB == nil {
		return
	}
	// The fetch context may already be spent; the insert gets its own short budget.
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := store.InsertRun(ictx, s.DB, run); err != nil {
		log.Printf("[runs] insert error company=%q err=%v", run.Company, err)
	}
}

// MultiResult is a multi-company search. Companies that failed are listed in Errors only.
type MultiResult struct {
	Pages  []domain.Page     `json:"pages"`
	Errors map[string]string `json:"errors,omitempty"`
}

// SearchMany runs the same query against several companies with bounded fan-out.
func (s *Service) SearchMany(ctx context.Context, slugs []string, q domain.Query) MultiResult {
	st := s.state.Load()
	pages := make([]*domain.Page, len(slugs))
	var mu sync.Mutex
	errs := map[string]string{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(st.concurrency)
	for i, slug := range slugs {
		g.Go(func() error {
			p, err := s.Search(gctx, slug, q)
			if err != nil {
				mu.Lock()
				errs[slug] = err.Error()
				mu.Unlock()
				return nil
			}
			pages[i] = &p
			return nil
		})
	}
	_ = g.Wait()

	out := MultiResult{Pages: []domain.Page{}}
	for _, p := range pages {
		if p != nil {
			out.Pages = append(out.Pages, *p)
		}
	}
	if len(errs) > 0 {
		out.Errors = errs
	}
	return out
}

// Companies lists the registry with logo URLs where a favicon is cached.
func (s *Service) Companies(ctx context.Context) []domain.Company {
	st := s.state.Load()
	list := st.reg.Companies()
	if s.Logos == nil {
		return list
	}
	for i := range list {
		_, co, _ := st.reg.Board(list[i].Slug)
		list[i].LogoURL = s.Logos.URL(ctx, co)
	}
	return list
}

// Company describes one registered company without its logo.
func (s *Service) Company(slug string) (domain.Company, bool) {
	for _, c := range s.state.Load().reg.Companies() {
		if c.Slug == slug {
			return c, true
		}
	}
	return domain.Company{}, false
}

func (s *Service) CacheLen() int { return s.Cache.Len() }

// Invalidate drops a company's cached pages and list memo.
func (s *Service) Invalidate(ctx context.Context, slug string) (int, error) {
	st := s.state.Load()
	if _, _, ok := st.reg.Board(slug); !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompany, slug)
	}
	st.reg.Forget(slug)
	n, err := s.Cache.Invalidate(ctx, slug)
	if err != nil {
		return n, err
	}
	s.Hub.Emit(ctx, events.TypeCacheCleared, map[string]any{"company": slug, "pages": n})
	return n, nil
}

// DegradedPage is what a listing shows when the upstream failed: no jobs and the error text.
func DegradedPage(slug string, q domain.Query, pageSize int, err error) domain.Page {
	return domain.Page{
		Company:   slug,
		Jobs:      []domain.Job{},
		Page:      q.PageOrFirst(),
		PageSize:  pageSize,
		FetchedAt: time.Now().UTC(),
		Error:     "Error: " + err.Error(),
	}
}
