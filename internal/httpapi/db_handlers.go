package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"joblawn-engine/internal/store"
)

type DBHandler struct {
	DB *sql.DB
}

func (h DBHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if !IsLocal(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "checkpoint is only allowed from localhost")
		return
	}
	if err := store.Checkpoint(r.Context(), h.DB); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "checkpoint_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Runs lists recent upstream fetches, newest first.
func (h DBHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := store.ListRuns(r.Context(), h.DB, r.URL.Query().Get("company"), limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "runs_failed", err.Error())
		return
	}
	if runs == nil {
		runs = []store.FetchRun{}
	}
	writeJSON(w, runs)
}
