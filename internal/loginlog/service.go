// Package loginlog records login attempts and serves cached listings.
// Recording is best-effort: a failed write is logged and never blocks or
// fails the login path that triggered it.
package loginlog

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tenant-identity-service/internal/cache"
	"tenant-identity-service/internal/loginlog/domain"
	"tenant-identity-service/internal/loginlog/repository"
)

// DefaultListLimit bounds listings and is the largest page the cache holds.
const DefaultListLimit = 50

// recordTimeout bounds the detached write an async record performs.
const recordTimeout = 30 * time.Second

// Service records and lists login attempts. cache may be nil.
type Service struct {
	repo  repository.Repository
	cache cache.Cache
}

// New returns a login-log Service over the given repository and optional cache.
func New(repo repository.Repository, c cache.Cache) *Service {
	return &Service{repo: repo, cache: c}
}

// Record persists the entry and erases every cached log view for the tenant.
// Invalidation precedes returning so a subsequent read cannot serve the
// pre-insert listing. Errors are returned for the caller to log; callers on
// the login path must treat them as non-fatal.
func (s *Service) Record(ctx context.Context, e *domain.Entry) error {
	if err := s.repo.Insert(ctx, e); err != nil {
		return err
	}
	if s.cache != nil {
		if _, err := s.cache.DeletePattern(ctx, cache.LogsPattern(e.TenantID)); err != nil {
			log.Printf("loginlog: cache invalidation for tenant %s: %v", e.TenantID, err)
		}
		if _, err := s.cache.DeletePattern(ctx, cache.TenantLogsPagePattern(e.TenantID)); err != nil {
			log.Printf("loginlog: cache invalidation for tenant %s: %v", e.TenantID, err)
		}
	}
	return nil
}

// RecordAsync records in a goroutine so login latency never includes the log
// write. Failures are logged.
func (s *Service) RecordAsync(e *domain.Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.Record(ctx, e); err != nil {
			log.Printf("loginlog: record for %s failed: %v", e.Email, err)
		}
	}()
}

// ListByUserAndTenant returns a user's entries within a tenant, newest first,
// read-through with LogsTTL. Only the first page (limit <= DefaultListLimit)
// is cached.
func (s *Service) ListByUserAndTenant(ctx context.Context, userID, tenantID string, limit int64) ([]*domain.Entry, bool, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	shouldCache := limit <= DefaultListLimit
	key := cache.UserTenantLogsKey(userID, tenantID)

	if shouldCache && s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("loginlog: cache get %s: %v", key, err)
		} else if ok {
			var entries []*domain.Entry
			if err := json.Unmarshal(raw, &entries); err == nil {
				return entries, true, nil
			}
		}
	}

	entries, err := s.repo.ListByUserAndTenant(ctx, userID, tenantID, limit)
	if err != nil {
		return nil, false, err
	}

	if shouldCache && s.cache != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, key, raw, cache.LogsTTL); err != nil {
				log.Printf("loginlog: cache set %s: %v", key, err)
			}
		}
	}
	return entries, false, nil
}

// ListByTenant returns a tenant's entries, newest first. Not cached: the
// tenant-wide view is an admin path and mutates on every login.
func (s *Service) ListByTenant(ctx context.Context, tenantID string, limit int64) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.repo.ListByTenant(ctx, tenantID, limit)
}

// Stats aggregates outcomes for the tenant over the trailing days.
func (s *Service) Stats(ctx context.Context, tenantID string, days int) (*domain.Stats, error) {
	if days <= 0 {
		days = 7
	}
	total, successful, err := s.repo.CountSince(ctx, tenantID, days)
	if err != nil {
		return nil, err
	}
	st := &domain.Stats{
		TotalAttempts:    total,
		SuccessfulLogins: successful,
		FailedLogins:     total - successful,
		PeriodDays:       days,
	}
	if total > 0 {
		st.SuccessRate = float64(successful) / float64(total) * 100
	}
	return st, nil
}
