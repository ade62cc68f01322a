package httpapi

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type WarmHandler struct {
	Warm Warmer
}

func (h WarmHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Warm.Status())
}

// Run starts a warm run in the background; the result arrives as a warm_finished event.
func (h WarmHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Warm.Status().Running {
		WriteJSON(w, http.StatusConflict, map[string]any{"ok": false, "msg": "already running"})
		return
	}
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.Warm.RunNow(ctx); err != nil {
			log.Printf("[warm] manual run: %v", err)
		}
	}()
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
