// Package handler exposes tenant administration over HTTP. All routes are
// admin-only; the server applies Auth and RequireRole before these run.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"tenant-identity-service/internal/tenant/domain"
	"tenant-identity-service/internal/tenant/service"
)

type Handler struct {
	tenants *service.Service
}

func New(tenants *service.Service) *Handler {
	return &Handler{tenants: tenants}
}

// Register mounts the tenant admin routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/tenants", h.create)
	mux.HandleFunc("GET /admin/tenants", h.list)
	mux.HandleFunc("GET /admin/tenants/{id}", h.get)
	mux.HandleFunc("PATCH /admin/tenants/{id}", h.update)
	mux.HandleFunc("POST /admin/tenants/{id}/activate", h.activate)
	mux.HandleFunc("POST /admin/tenants/{id}/deactivate", h.deactivate)
	mux.HandleFunc("DELETE /admin/tenants/{id}", h.delete)
}

type createRequest struct {
	Name        string `json:"name"`
	Document    string `json:"document"`
	Description string `json:"description"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Document == "" {
		writeError(w, http.StatusBadRequest, "name and document are required")
		return
	}
	t, err := h.tenants.Create(r.Context(), req.Name, req.Document, req.Description)
	if err != nil {
		h.writeTenantError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	ts, fromCache, err := h.tenants.List(r.Context(), activeOnly)
	if err != nil {
		h.writeTenantError(w, err)
		return
	}
	setCacheHeader(w, fromCache)
	writeJSON(w, http.StatusOK, ts)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	t, fromCache, err := h.tenants.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeTenantError(w, err)
		return
	}
	if t == nil {
		h.writeTenantError(w, service.ErrTenantNotFound)
		return
	}
	setCacheHeader(w, fromCache)
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var upd domain.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.tenants.UpdateTenant(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		h.writeTenantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	if err := h.tenants.Activate(r.Context(), r.PathValue("id")); err != nil {
		h.writeTenantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "tenant activated"})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.tenants.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		h.writeTenantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "tenant deactivated"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tenants.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeTenantError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeTenantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateDocument):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNothingToUpdate):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// setCacheHeader marks whether the response was served from cache, mainly for
// operators inspecting cache behavior.
func setCacheHeader(w http.ResponseWriter, fromCache bool) {
	if fromCache {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
