// Package handler exposes login-log listings over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tenant-identity-service/internal/loginlog"
	"tenant-identity-service/internal/server/middleware"
)

type Handler struct {
	logs *loginlog.Service
}

func New(logs *loginlog.Service) *Handler {
	return &Handler{logs: logs}
}

// RegisterMe mounts the self-service route; it needs Auth and the tenant gate.
func (h *Handler) RegisterMe(mux *http.ServeMux) {
	mux.HandleFunc("GET /me/logins", h.listOwn)
}

// RegisterAdmin mounts the tenant-wide routes; they need Auth plus the admin role.
func (h *Handler) RegisterAdmin(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/tenants/{id}/logins", h.listTenant)
	mux.HandleFunc("GET /admin/tenants/{id}/logins/stats", h.stats)
}

// listOwn returns the caller's login history within the request tenant.
func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	tenantID, ok := middleware.GetTenantID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "tenant id required")
		return
	}
	entries, fromCache, err := h.logs.ListByUserAndTenant(r.Context(), p.UserID, tenantID, limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if fromCache {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) listTenant(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.ListByTenant(r.Context(), r.PathValue("id"), limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	st, err := h.logs.Stats(r.Context(), r.PathValue("id"), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func limitParam(r *http.Request) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
