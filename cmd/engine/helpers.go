package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/httpapi"
)

// loadConfig reads the user config with the companies overlay. Warnings are logged;
// validation errors stop the load.
func loadConfig(path, overlayPath string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := config.OverlayCompanies(&cfg, overlayPath); err != nil {
		return cfg, err
	}
	cfg, vr := config.NormalizeAndValidate(cfg)
	for _, w := range vr.Warnings {
		log.Warnf("config: %s", w)
	}
	if !vr.OK() {
		return cfg, fmt.Errorf("invalid config %s:\n- %s", path, strings.Join(vr.Errors, "\n- "))
	}
	return cfg, nil
}

func setupLogging(s config.Settings) {
	if s.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	lvl, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// lockDataDir keeps two engines from sharing one sqlite file and config.
func lockDataDir(dir string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(dir, "engine.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("another engine is already running")
	}
	return fl, nil
}

func listenAddr(s config.Settings, cfg config.Config) string {
	if s.Addr != "" {
		return s.Addr
	}
	return fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownHandler(token *string, stop func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpapi.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "POST only")
			return
		}
		if !httpapi.IsLocal(r) {
			httpapi.WriteError(w, r, http.StatusForbidden, "forbidden", "shutdown is only allowed from localhost")
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(*token)) != 1 {
			httpapi.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "bad shutdown token")
			return
		}

		// Respond first; main drains the server once stop cancels the root context.
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))
		log.Info("shutdown requested")
		go stop()
	}
}

