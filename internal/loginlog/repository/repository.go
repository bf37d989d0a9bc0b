package repository

import (
	"context"

	"tenant-identity-service/internal/loginlog/domain"
)

// Repository is the login-log store boundary.
type Repository interface {
	Insert(ctx context.Context, e *domain.Entry) error
	// ListByUserAndTenant returns the newest entries first, up to limit.
	ListByUserAndTenant(ctx context.Context, userID, tenantID string, limit int64) ([]*domain.Entry, error)
	// ListByTenant returns the newest entries first, up to limit.
	ListByTenant(ctx context.Context, tenantID string, limit int64) ([]*domain.Entry, error)
	// CountSince returns total and successful attempt counts for the tenant
	// over the trailing period.
	CountSince(ctx context.Context, tenantID string, days int) (total, successful int64, err error)
}
