package httpapi

import (
	"net/http"
	"time"

	"joblawn-engine/internal/events"
)

type HealthHandler struct {
	Listings Listings
	Hub      *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":            true,
		"time":          time.Now().Format(time.RFC3339),
		"cache_entries": h.Listings.CacheLen(),
		"sse_clients":   h.Hub.Clients(),
	})
}
