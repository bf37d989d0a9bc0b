// Package telemetry defines the auth-event stream emitted alongside the
// request path: logins, token exchanges, resets, tenant changes.
package telemetry

import (
	"context"
	"log"
	"time"
)

// Event types emitted by the service.
const (
	EventLogin         = "auth.login"
	EventRegister      = "auth.register"
	EventTokenRefresh  = "auth.token_refresh"
	EventLogout        = "auth.logout"
	EventPasswordReset = "auth.password_reset"
	EventTenantChange  = "tenant.change"
)

// Event is one auth-domain occurrence. TenantID is always set; the other
// identity fields are filled when known.
type Event struct {
	Type     string
	TenantID string
	UserID   string
	Email    string
	Outcome  string // "success" or a short failure reason
	IP       string
	At       time.Time
}

// EventEmitter sends events to the telemetry backend. Emission is best-effort
// and must never block or fail a request.
type EventEmitter interface {
	Emit(ctx context.Context, e *Event) error
}

// EmitAsync runs Emit in a goroutine with a short timeout so the request path
// is never blocked on the exporter. A nil emitter or event is a no-op.
func EmitAsync(emitter EventEmitter, e *Event) {
	if emitter == nil || e == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := emitter.Emit(ctx, e); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}
