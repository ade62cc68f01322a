package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{Listings: d.Listings, Hub: d.Hub}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Listings
	lh := ListingsHandler{Listings: d.Listings, CfgVal: d.CfgVal}
	mux.HandleFunc("/companies", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Companies,
	}))
	mux.HandleFunc("/companies/{slug}/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Jobs,
	}))
	mux.HandleFunc("/companies/{slug}/cache", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: lh.ClearCache,
	}))
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Multi,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		OnReload:    d.Listings.Reload,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/redis", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetRedisPassword,
		http.MethodDelete: sh.DeleteRedisPassword,
	}))

	// Warm
	wh := WarmHandler{Warm: d.Warm}
	mux.HandleFunc("/warm/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: wh.Status,
	}))
	mux.HandleFunc("/warm/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: wh.Run,
	}))

	// Store
	dh := DBHandler{DB: d.DB}
	mux.HandleFunc("/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Runs,
	}))
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Logos
	lg := LogosHandler{DB: d.DB}
	mux.HandleFunc("/logo/{key}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lg.Get,
	}))

	return mux
}

// Handler wraps mux in the standard middleware chain.
func Handler(mux http.Handler) http.Handler {
	return Chain(mux, RequestID, Recover, AccessLog, Cors)
}
