package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"tenant-identity-service/internal/ratelimit"
)

// KeyFunc derives the rate-limit key from a request. An empty key admits the
// request unlimited.
type KeyFunc func(r *http.Request) string

// ClientIPKey keys the limiter by client IP, honoring X-Forwarded-For when a
// trusted proxy set it.
func ClientIPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PrincipalKey keys the limiter by the authenticated account, falling back to
// client IP for anonymous requests. Use after Auth for per-account policies.
func PrincipalKey(r *http.Request) string {
	if p, ok := GetPrincipal(r.Context()); ok {
		return "account:" + p.UserID
	}
	return ClientIPKey(r)
}

// RateLimit returns middleware that admits requests through the limiter,
// rejecting over-limit keys with 429 and a Retry-After header.
func RateLimit(l *ratelimit.Limiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			ok, retryAfter := l.Allow(k)
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
