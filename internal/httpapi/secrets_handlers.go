package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"joblawn-engine/internal/config"
	"joblawn-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setRedisPasswordReq struct {
	Password string `json:"password"`
}

func (h SecretsHandler) account() string {
	return h.CfgVal.Load().(config.Config).Cache.Redis.KeyringAccount
}

// SetRedisPassword stores the password used on the next engine start.
func (h SecretsHandler) SetRedisPassword(w http.ResponseWriter, r *http.Request) {
	var req setRedisPasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := secrets.SetRedisPassword(h.account(), req.Password); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_failed", "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteRedisPassword(w http.ResponseWriter, r *http.Request) {
	if err := secrets.DeleteRedisPassword(h.account()); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "keyring_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
