package repository

import (
	"context"

	"tenant-identity-service/internal/user/domain"
)

// Repository is the user store boundary. Lookups return (nil, nil) when the
// user does not exist; errors are reserved for store failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmailAndTenant(ctx context.Context, email, tenantID string) (*domain.User, error)
	GetByOAuthID(ctx context.Context, provider, oauthID, tenantID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	LinkOAuth(ctx context.Context, id, provider, oauthID, displayName, picture string) error
	SetLastLogin(ctx context.Context, id string) error

	// RefreshTokens returns the user's live refresh-token set in insertion order.
	RefreshTokens(ctx context.Context, id string) ([]string, error)
	// ReplaceRefreshTokens overwrites the live set unconditionally.
	ReplaceRefreshTokens(ctx context.Context, id string, tokens []string) error
	// SwapRefreshTokens overwrites the live set only if mustContain is still
	// present, reporting whether the swap applied. This is the compare-and-swap
	// the rotation protocol relies on; concurrent rotations race with
	// last-writer-wins semantics beyond this guard.
	SwapRefreshTokens(ctx context.Context, id, mustContain string, tokens []string) (bool, error)
}
