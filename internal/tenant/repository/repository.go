package repository

import (
	"context"

	"tenant-identity-service/internal/tenant/domain"
)

// Repository is the tenant store boundary. Lookups return (nil, nil) when the
// tenant does not exist; errors are reserved for store failures.
type Repository interface {
	GetByTenantID(ctx context.Context, tenantID string) (*domain.Tenant, error)
	GetByDocument(ctx context.Context, document string) (*domain.Tenant, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) error
	Update(ctx context.Context, tenantID string, upd domain.Update) (*domain.Tenant, error)
	SetActive(ctx context.Context, tenantID string, active bool) (bool, error)
	Delete(ctx context.Context, tenantID string) (bool, error)
}
