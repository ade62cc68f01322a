package poll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/events"
	"joblawn-engine/internal/scheduler"
	"joblawn-engine/internal/scrape/types"
)

var ErrWarmRunning = errors.New("warm run already in progress")

const tick = 30 * time.Second

// Poller keeps the cache warm for the configured companies on polling.warm_seconds.
type Poller struct {
	Searcher Searcher
	Cfg      *atomic.Value // config.Config
	Hub      *events.Hub

	running atomic.Bool
	mu      sync.Mutex
	status  types.WarmStatus
	lastRun time.Time
}

func New(s Searcher, cfg *atomic.Value, hub *events.Hub) *Poller {
	return &Poller{Searcher: s, Cfg: cfg, Hub: hub}
}

// Start blocks until ctx ends. The interval is re-read from config on every tick, so a
// PUT /config that changes warm_seconds takes effect without a restart.
func (p *Poller) Start(ctx context.Context) {
	scheduler.Every(ctx, tick, "warm", func(ctx context.Context) error {
		cfg, ok := p.config()
		if !ok || cfg.Polling.WarmSeconds <= 0 || len(cfg.Polling.WarmCompanies) == 0 {
			return nil
		}
		p.mu.Lock()
		due := time.Since(p.lastRun) >= time.Duration(cfg.Polling.WarmSeconds)*time.Second
		p.mu.Unlock()
		if !due {
			return nil
		}
		err := p.RunNow(ctx)
		if errors.Is(err, ErrWarmRunning) {
			return nil
		}
		return err
	})
}

func (p *Poller) config() (config.Config, bool) {
	v := p.Cfg.Load()
	if v == nil {
		return config.Config{}, false
	}
	return v.(config.Config), true
}

// RunNow warms every configured company once and records the outcome.
func (p *Poller) RunNow(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrWarmRunning
	}
	defer p.running.Store(false)

	cfg, ok := p.config()
	if !ok {
		return errors.New("config not loaded")
	}

	start := time.Now()
	p.mu.Lock()
	p.lastRun = start
	p.status.Running = true
	p.status.LastRunAt = start.Format(time.RFC3339)
	p.mu.Unlock()

	res := WarmOnce(ctx, p.Searcher, cfg)
	dur := time.Since(start)

	p.mu.Lock()
	st := p.status
	st.Running = false
	st.LastPages = res.Pages
	st.LastJobs = res.Jobs
	st.DurationMS = dur.Milliseconds()
	st.Failures = nil
	st.LastError = ""
	if len(res.Failures) > 0 {
		st.Failures = res.Failures
		st.LastError = summarize(res.Failures)
	}
	if res.Pages > 0 || len(res.Failures) == 0 {
		st.LastOkAt = time.Now().Format(time.RFC3339)
	}
	p.status = st
	p.mu.Unlock()

	log.WithFields(log.Fields{
		"pages":    res.Pages,
		"jobs":     res.Jobs,
		"failures": len(res.Failures),
		"dur_ms":   dur.Milliseconds(),
	}).Info("warm run finished")
	p.Hub.Emit(ctx, events.TypeWarmFinished, st)

	if res.Pages == 0 && len(res.Failures) > 0 {
		return fmt.Errorf("warm: every company failed (%s)", st.LastError)
	}
	return nil
}

func (p *Poller) Status() types.WarmStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status
	st.Running = p.running.Load()
	return st
}

func summarize(failures map[string]string) string {
	slugs := make([]string, 0, len(failures))
	for s := range failures {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	parts := make([]string, 0, len(slugs))
	for _, s := range slugs {
		parts = append(parts, s+": "+failures[s])
	}
	return strings.Join(parts, "; ")
}
