package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	tenantservice "tenant-identity-service/internal/tenant/service"
)

// TenantIDHeader carries the tenant id on every tenant-scoped request.
const TenantIDHeader = "X-Tenant-ID"

// TenantValidator reports whether a tenant exists and is active. Implemented
// by the tenant service.
type TenantValidator interface {
	Validate(ctx context.Context, tenantID string) (fromCache bool, err error)
}

// TenantGate returns middleware that resolves and validates the request's
// tenant before the handler runs. The id comes from the X-Tenant-ID header,
// falling back to the tenant_id query parameter. Requests without a tenant get
// 401; unknown or deactivated tenants get 403; the validated id is set in
// context for the handler.
func TenantGate(tenants TenantValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := strings.TrimSpace(r.Header.Get(TenantIDHeader))
			if tenantID == "" {
				tenantID = strings.TrimSpace(r.URL.Query().Get("tenant_id"))
			}
			if tenantID == "" {
				writeError(w, http.StatusUnauthorized, "tenant id required")
				return
			}

			_, err := tenants.Validate(r.Context(), tenantID)
			switch {
			case err == nil:
			case errors.Is(err, tenantservice.ErrTenantNotFound):
				writeError(w, http.StatusForbidden, "unknown tenant")
				return
			case errors.Is(err, tenantservice.ErrTenantInactive):
				writeError(w, http.StatusForbidden, "tenant is deactivated")
				return
			default:
				// Store failure: deny rather than guess at tenant state.
				log.Printf("tenant gate: validate %s: %v", tenantID, err)
				writeError(w, http.StatusServiceUnavailable, "tenant validation unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenantID(r.Context(), tenantID)))
		})
	}
}
