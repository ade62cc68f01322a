package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"joblawn-engine/internal/cache"
	"joblawn-engine/internal/config"
	"joblawn-engine/internal/events"
	"joblawn-engine/internal/httpapi"
	"joblawn-engine/internal/poll"
	"joblawn-engine/internal/scheduler"
	"joblawn-engine/internal/scrape"
	"joblawn-engine/internal/scrape/util"
	"joblawn-engine/internal/secrets"
	"joblawn-engine/internal/store"
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatalf("settings: %v", err)
	}
	setupLogging(settings)

	dataDir := settings.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	lock, err := lockDataDir(dataDir)
	if err != nil {
		log.Fatalf("data dir %s: %v", dataDir, err)
	}
	defer func() { _ = lock.Unlock() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir, settings.DefaultConfig)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}
	companiesPath := filepath.Join(dataDir, "companies.yml")

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return loadConfig(userCfgPath, companiesPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "joblawn.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redis := openRedis(cfg, settings)
	var mirror cache.Mirror
	if redis != nil {
		mirror = redis
		defer redis.Close()
	}
	tiered := cache.NewTiered(cache.NewMemory(), mirror, cfg.CacheTTL(), cfg.Cache.Redis.KeyPrefix)

	limiter := util.NewHostLimiter(cfg.Fetch.RatePerSecond, cfg.Fetch.Burst)
	client := util.NewClient(cfg.FetchTimeout(), limiter, cfg.Fetch.UserAgent)

	hub := events.NewHub()
	logos := &scrape.Logos{DB: db.Pool, Client: client}

	svc := scrape.NewService(cfg, client, tiered)
	svc.DB = db.Pool
	svc.Hub = hub
	svc.Logos = logos

	warm := poll.New(svc, &cfgVal, hub)
	go warm.Start(ctx)

	go scheduler.Every(ctx, time.Minute, "cache-sweep", func(context.Context) error {
		if n := tiered.Mem.Sweep(); n > 0 {
			log.WithField("entries", n).Debug("cache swept")
		}
		return nil
	})
	go scheduler.Every(ctx, 6*time.Hour, "runs-cleanup", func(ctx context.Context) error {
		n, err := store.CleanupOldRuns(ctx, db.Pool, 7*24*time.Hour)
		if err == nil && n > 0 {
			log.WithField("deleted", n).Info("old fetch runs removed")
		}
		return err
	})
	go scheduler.Every(ctx, 24*time.Hour, "logos", func(ctx context.Context) error {
		cur := cfgVal.Load().(config.Config)
		logos.Warm(ctx, cur.Companies)
		return nil
	})

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		CfgVal:      &cfgVal,
		Listings:    svc,
		Warm:        warm,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})

	addr := listenAddr(settings, cfg)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler:           httpapi.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	token, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&token, stop))

	log.WithFields(log.Fields{
		"addr":      "http://" + addr,
		"db":        dbPath,
		"config":    userCfgPath,
		"companies": svc.Registry().Len(),
		"redis":     redis != nil,
	}).Info("engine listening")
	// The desktop shell reads the shutdown token from stdout.
	os.Stdout.WriteString("SHUTDOWN_TOKEN=" + token + "\n")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("serve: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
	if err := store.Checkpoint(shutdownCtx, db.Pool); err != nil {
		log.Warnf("checkpoint: %v", err)
	}
	log.Info("engine stopped")
}

func openRedis(cfg config.Config, settings config.Settings) *cache.Redis {
	rc := cfg.Cache.Redis
	if !rc.Enabled {
		return nil
	}
	addr := rc.Addr
	if settings.RedisAddr != "" {
		addr = settings.RedisAddr
	}
	pw, err := secrets.RedisPassword(rc.KeyringAccount, settings.RedisPassword)
	if err != nil && !errors.Is(err, secrets.ErrNoPassword) {
		log.Warnf("redis password: %v", err)
	}
	r := cache.NewRedis(cache.RedisOptions{Addr: addr, Password: pw, DB: rc.DB})
	if !r.Available() {
		return nil
	}
	return r
}
