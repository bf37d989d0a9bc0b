// Package server assembles the HTTP surface: route groups, middleware chains,
// and rate-limit policies.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	identityhandler "tenant-identity-service/internal/identity/handler"
	identityservice "tenant-identity-service/internal/identity/service"
	"tenant-identity-service/internal/loginlog"
	loginloghandler "tenant-identity-service/internal/loginlog/handler"
	"tenant-identity-service/internal/passwordreset"
	resethandler "tenant-identity-service/internal/passwordreset/handler"
	"tenant-identity-service/internal/ratelimit"
	"tenant-identity-service/internal/security"
	"tenant-identity-service/internal/server/middleware"
	tenanthandler "tenant-identity-service/internal/tenant/handler"
	tenantservice "tenant-identity-service/internal/tenant/service"
	userdomain "tenant-identity-service/internal/user/domain"
)

// Options carries the dependencies for the HTTP server.
type Options struct {
	Addr    string
	Tokens  *security.TokenProvider
	Tenants *tenantservice.Service
	Auth    *identityservice.AuthService
	Resets  *passwordreset.Service
	Logs    *loginlog.Service

	// Ping reports backing-store health for /health. May be nil.
	Ping func(ctx context.Context) error
}

// Limiters holds the per-policy rate limiters the server admits traffic
// through. Zero-value fields are filled with the standard policies.
type Limiters struct {
	Default    *ratelimit.Limiter
	Strict     *ratelimit.Limiter
	Login      *ratelimit.Limiter
	PerAccount *ratelimit.Limiter
}

func (l *Limiters) fill() {
	if l.Default == nil {
		l.Default = ratelimit.Default()
	}
	if l.Strict == nil {
		l.Strict = ratelimit.Strict()
	}
	if l.Login == nil {
		l.Login = ratelimit.Login()
	}
	if l.PerAccount == nil {
		l.PerAccount = ratelimit.PerAccount()
	}
}

// StartSweepers starts the idle-counter sweep on every limiter. Sweepers stop
// when ctx is canceled.
func (l *Limiters) StartSweepers(ctx context.Context, interval time.Duration) {
	l.Default.StartSweeper(ctx, interval)
	l.Strict.StartSweeper(ctx, interval)
	l.Login.StartSweeper(ctx, interval)
	l.PerAccount.StartSweeper(ctx, interval)
}

// New builds the HTTP server. Route groups:
//
//	/auth/*  tenant gate, per-route rate policy, anonymous
//	/me/*    bearer auth, tenant gate, per-account rate policy
//	/admin/* bearer auth, admin role, default rate policy
//	/health  unauthenticated
func New(opts Options, limiters *Limiters) *http.Server {
	if limiters == nil {
		limiters = &Limiters{}
	}
	limiters.fill()

	authMux := http.NewServeMux()
	identityhandler.New(opts.Auth).Register(authMux)
	resethandler.New(opts.Resets).Register(authMux)

	logsHandler := loginloghandler.New(opts.Logs)

	meMux := http.NewServeMux()
	meMux.HandleFunc("GET /me/profile", profileHandler)
	logsHandler.RegisterMe(meMux)

	adminMux := http.NewServeMux()
	logsHandler.RegisterAdmin(adminMux)
	tenanthandler.New(opts.Tenants).Register(adminMux)

	root := http.NewServeMux()
	root.Handle("/auth/", chain(authMux,
		authRateLimit(limiters),
		middleware.TenantGate(opts.Tenants),
	))
	root.Handle("/me/", chain(meMux,
		middleware.RateLimit(limiters.PerAccount, middleware.PrincipalKey),
		middleware.TenantGate(opts.Tenants),
		middleware.Auth(opts.Tokens),
	))
	root.Handle("/admin/", chain(adminMux,
		middleware.RateLimit(limiters.Default, middleware.PrincipalKey),
		middleware.RequireRole(userdomain.RoleAdmin),
		middleware.Auth(opts.Tokens),
	))
	root.HandleFunc("GET /health", healthHandler(opts.Ping))

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// chain wraps h with the middlewares so the last listed runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}

// authRateLimit picks the rate policy per auth route: credential submission
// gets the login policy, password reset the strict policy, token exchange the
// default. All are keyed by client IP since the caller is anonymous.
func authRateLimit(l *Limiters) func(http.Handler) http.Handler {
	pick := func(r *http.Request) *ratelimit.Limiter {
		switch {
		case r.URL.Path == "/auth/login" || r.URL.Path == "/auth/oauth":
			return l.Login
		case strings.HasPrefix(r.URL.Path, "/auth/password-reset/"):
			return l.Strict
		default:
			return l.Default
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			middleware.RateLimit(pick(r), middleware.ClientIPKey)(next).ServeHTTP(w, r)
		})
	}
}

// profileHandler rebuilds the caller's view of themselves from the verified
// token claims; no store read is involved.
func profileHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing or invalid authorization"})
		return
	}
	tenantID, _ := middleware.GetTenantID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":        p.UserID,
		"email":     p.Email,
		"roles":     p.Roles,
		"is_active": p.Active,
		"tenant_id": tenantID,
	})
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body = map[string]string{"status": "degraded"}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
