// Package handler exposes the password-reset lifecycle over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tenant-identity-service/internal/passwordreset"
	"tenant-identity-service/internal/server/middleware"
)

type Handler struct {
	resets *passwordreset.Service
}

func New(resets *passwordreset.Service) *Handler {
	return &Handler{resets: resets}
}

// Register mounts the reset routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/password-reset/request", h.request)
	mux.HandleFunc("GET /auth/password-reset/validate/{token}", h.validate)
	mux.HandleFunc("POST /auth/password-reset/confirm", h.confirm)
}

type requestBody struct {
	Email string `json:"email"`
}

type confirmBody struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// request issues a reset token for the account. The response is identical
// whether or not the account exists so the endpoint cannot be used to
// enumerate registered emails.
func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "tenant id required")
		return
	}
	var req requestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tok, err := h.resets.Request(r.Context(), tenantID, req.Email, middleware.ClientIPKey(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tok != nil {
		// Delivery is out of band; the token never appears in the response.
		log.Printf("password reset token issued for %s (tenant %s)", req.Email, tenantID)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, a reset token has been issued",
	})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	tok, err := h.resets.Validate(r.Context(), r.PathValue("token"))
	if errors.Is(err, passwordreset.ErrInvalidResetToken) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"expires_at": tok.ExpiresAt,
	})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := h.resets.Consume(r.Context(), req.Token, req.NewPassword)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
	case errors.Is(err, passwordreset.ErrInvalidResetToken):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, passwordreset.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
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
