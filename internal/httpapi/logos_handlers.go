package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"joblawn-engine/internal/store"
)

type LogosHandler struct {
	DB *sql.DB
}

func (h LogosHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_key", "missing key")
		return
	}

	ct, b, err := store.GetLogo(r.Context(), h.DB, key)
	if errors.Is(err, store.ErrLogoNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "logo not cached")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "logo_failed", err.Error())
		return
	}

	if ct == "" {
		ct = "image/*"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=604800")
	_, _ = w.Write(b)
}
