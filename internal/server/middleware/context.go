package middleware

import "context"

type contextKey struct{ name string }

var (
	tenantIDKey  = contextKey{"tenant_id"}
	principalKey = contextKey{"principal"}
)

// Principal is the authenticated subject extracted from a verified access
// token. It reflects the account at token issuance time.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
	Active bool
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// WithTenantID returns a context with the validated tenant id set.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// GetTenantID returns the tenant id from context and true if set; otherwise "", false.
func GetTenantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tenantIDKey).(string)
	return v, ok
}

// WithPrincipal returns a context with the authenticated principal set.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the principal from context and true if set; otherwise nil, false.
func GetPrincipal(ctx context.Context) (*Principal, bool) {
	v, ok := ctx.Value(principalKey).(*Principal)
	return v, ok
}
