// Package service implements tenant resolution and administration with the
// read-through/write-invalidate cache protocol. The document store always wins
// on conflict; cache failures are absorbed and logged, never surfaced.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"tenant-identity-service/internal/cache"
	"tenant-identity-service/internal/telemetry"
	"tenant-identity-service/internal/tenant/domain"
	"tenant-identity-service/internal/tenant/repository"
)

// Sentinel errors for the tenant service; handlers and the tenant gate map
// them to status codes. Tenant errors are reported distinctly from
// credential errors.
var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantInactive    = errors.New("tenant inactive")
	ErrDuplicateDocument = errors.New("tenant with this document already exists")
	ErrNothingToUpdate   = errors.New("no fields to update")
)

// Service resolves and administers tenants. cache may be nil, which disables
// caching entirely (every read hits the store).
type Service struct {
	repo   repository.Repository
	cache  cache.Cache
	events telemetry.EventEmitter
}

// New returns a tenant Service over the given repository and optional cache.
// events may be nil, which disables change events.
func New(repo repository.Repository, c cache.Cache, events telemetry.EventEmitter) *Service {
	return &Service{repo: repo, cache: c, events: events}
}

// Validate resolves tenantID read-through and reports whether the tenant
// admits traffic. fromCache is observable so tests can assert the coherence
// protocol. Inactive tenants return ErrTenantInactive even on a cache hit.
func (s *Service) Validate(ctx context.Context, tenantID string) (fromCache bool, err error) {
	t, fromCache, err := s.Get(ctx, tenantID)
	if err != nil {
		return fromCache, err
	}
	if t == nil {
		return fromCache, ErrTenantNotFound
	}
	if !t.Active {
		return fromCache, ErrTenantInactive
	}
	return fromCache, nil
}

// Get returns the tenant read-through: cache hit wins, a miss reads the store
// and populates the cache with TenantTTL. Returns (nil, false, nil) when the
// tenant does not exist.
func (s *Service) Get(ctx context.Context, tenantID string) (*domain.Tenant, bool, error) {
	key := cache.TenantKey(tenantID)
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("tenant: cache get %s: %v", key, err)
		} else if ok {
			var t domain.Tenant
			if err := json.Unmarshal(raw, &t); err == nil {
				return &t, true, nil
			}
			log.Printf("tenant: cache entry %s corrupt, falling through", key)
		}
	}

	t, err := s.repo.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	if t == nil {
		return nil, false, nil
	}
	s.cacheSet(ctx, key, t)
	return t, false, nil
}

// List returns all tenants (or only active ones) read-through with the list
// cache keys.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*domain.Tenant, bool, error) {
	key := cache.TenantsListAllKey
	if activeOnly {
		key = cache.TenantsListActiveKey
	}
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("tenant: cache get %s: %v", key, err)
		} else if ok {
			var list []*domain.Tenant
			if err := json.Unmarshal(raw, &list); err == nil {
				return list, true, nil
			}
		}
	}

	list, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, false, err
	}
	s.cacheSet(ctx, key, list)
	return list, false, nil
}

// Create inserts a new tenant. The registration document must be unique.
// Invalidation runs before success is returned.
func (s *Service) Create(ctx context.Context, name, document, description string) (*domain.Tenant, error) {
	existing, err := s.repo.GetByDocument(ctx, document)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateDocument
	}
	t := domain.New(name, document, description)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, t.TenantID)
	s.emitChange(t.TenantID, "created")
	return t, nil
}

// UpdateTenant applies the non-nil fields of upd, re-checking document
// uniqueness when the document changes.
func (s *Service) UpdateTenant(ctx context.Context, tenantID string, upd domain.Update) (*domain.Tenant, error) {
	if upd.Name == nil && upd.Document == nil && upd.Description == nil && upd.Active == nil {
		return nil, ErrNothingToUpdate
	}
	if upd.Document != nil {
		other, err := s.repo.GetByDocument(ctx, *upd.Document)
		if err != nil {
			return nil, err
		}
		if other != nil && other.TenantID != tenantID {
			return nil, ErrDuplicateDocument
		}
	}
	t, err := s.repo.Update(ctx, tenantID, upd)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTenantNotFound
	}
	s.invalidate(ctx, tenantID)
	s.emitChange(tenantID, "updated")
	return t, nil
}

// Activate re-enables admission for the tenant.
func (s *Service) Activate(ctx context.Context, tenantID string) error {
	return s.setActive(ctx, tenantID, true)
}

// Deactivate is a soft delete: the tenant stops admitting traffic on the very
// next validation, even within the prior cache TTL window.
func (s *Service) Deactivate(ctx context.Context, tenantID string) error {
	return s.setActive(ctx, tenantID, false)
}

func (s *Service) setActive(ctx context.Context, tenantID string, active bool) error {
	ok, err := s.repo.SetActive(ctx, tenantID, active)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTenantNotFound
	}
	s.invalidate(ctx, tenantID)
	if active {
		s.emitChange(tenantID, "activated")
	} else {
		s.emitChange(tenantID, "deactivated")
	}
	return nil
}

// Delete permanently removes the tenant.
func (s *Service) Delete(ctx context.Context, tenantID string) error {
	ok, err := s.repo.Delete(ctx, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTenantNotFound
	}
	s.invalidate(ctx, tenantID)
	s.emitChange(tenantID, "deleted")
	return nil
}

// invalidate erases the entity key and both list keys so no stale view of the
// tenant survives a mutation. Runs synchronously before the mutation returns.
func (s *Service) invalidate(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.TenantKey(tenantID), cache.TenantsListActiveKey, cache.TenantsListAllKey); err != nil {
		log.Printf("tenant: cache invalidation for %s: %v", tenantID, err)
	}
}

func (s *Service) emitChange(tenantID, outcome string) {
	if s.events == nil {
		return
	}
	telemetry.EmitAsync(s.events, &telemetry.Event{
		Type:     telemetry.EventTenantChange,
		TenantID: tenantID,
		Outcome:  outcome,
		At:       time.Now().UTC(),
	})
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, cache.TenantTTL); err != nil {
		log.Printf("tenant: cache set %s: %v", key, err)
	}
}
