package passwordreset

import (
	"context"
	"errors"
	"log"
	"time"

	"tenant-identity-service/internal/refreshtoken"
	"tenant-identity-service/internal/security"
	"tenant-identity-service/internal/telemetry"
	userdomain "tenant-identity-service/internal/user/domain"
)

var (
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrWeakPassword      = errors.New("password must be at least 8 characters")
)

// UserStore is the slice of the user repository the reset flow needs.
type UserStore interface {
	GetByEmailAndTenant(ctx context.Context, email, tenantID string) (*userdomain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// Service implements the password-reset lifecycle: request, validate, consume.
type Service struct {
	repo     Repository
	users    UserStore
	hasher   *security.Hasher
	registry *refreshtoken.Registry
	ttl      time.Duration
	events   telemetry.EventEmitter
	nowF     func() time.Time
}

func NewService(repo Repository, users UserStore, hasher *security.Hasher, registry *refreshtoken.Registry, ttl time.Duration, events telemetry.EventEmitter) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		hasher:   hasher,
		registry: registry,
		ttl:      ttl,
		events:   events,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Request creates a reset token for the account, if one exists. It returns the
// token so the caller can deliver it out of band; a nil token with nil error
// means no matching account, and callers must respond identically in both
// cases to avoid leaking which emails are registered.
func (s *Service) Request(ctx context.Context, tenantID, email, ip string) (*Token, error) {
	user, err := s.users.GetByEmailAndTenant(ctx, email, tenantID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	t := NewToken(tenantID, email, s.ttl, ip)
	if err := s.repo.Insert(ctx, t); err != nil {
		return nil, err
	}
	s.emit(tenantID, user.ID.Hex(), email, "requested", ip)
	return t, nil
}

// Validate reports whether the token is known, unused, and unexpired.
func (s *Service) Validate(ctx context.Context, token string) (*Token, error) {
	t, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.Valid(s.nowF()) {
		return nil, ErrInvalidResetToken
	}
	return t, nil
}

// Consume redeems the token: it marks the token used, sets the new password,
// invalidates every other outstanding token for the email, and revokes all of
// the account's refresh tokens so stolen sessions die with the old password.
func (s *Service) Consume(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	t, err := s.Validate(ctx, token)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmailAndTenant(ctx, t.Email, t.TenantID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidResetToken
	}

	// Marking used first makes the token single-use even if a concurrent
	// redeem raced past Validate.
	ok, err := s.repo.MarkUsed(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID.Hex(), hash); err != nil {
		return err
	}

	if _, err := s.repo.InvalidateAllForEmail(ctx, t.Email); err != nil {
		log.Printf("password reset: invalidate tokens for %s: %v", t.Email, err)
	}
	if err := s.registry.RevokeAll(ctx, user.ID.Hex()); err != nil {
		log.Printf("password reset: revoke refresh tokens for %s: %v", user.ID.Hex(), err)
	}
	s.emit(t.TenantID, user.ID.Hex(), t.Email, "completed", t.IPAddress)
	return nil
}

func (s *Service) emit(tenantID, userID, email, outcome, ip string) {
	if s.events == nil {
		return
	}
	telemetry.EmitAsync(s.events, &telemetry.Event{
		Type:     telemetry.EventPasswordReset,
		TenantID: tenantID,
		UserID:   userID,
		Email:    email,
		Outcome:  outcome,
		IP:       ip,
		At:       s.nowF(),
	})
}

// SweepExpired deletes expired tokens. The worker runs it on an interval.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}
