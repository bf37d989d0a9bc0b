package service

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	logdomain "tenant-identity-service/internal/loginlog/domain"
	"tenant-identity-service/internal/oauth"
	"tenant-identity-service/internal/refreshtoken"
	"tenant-identity-service/internal/security"
	"tenant-identity-service/internal/telemetry"
	userdomain "tenant-identity-service/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountDisabled        = errors.New("account disabled")
	ErrOAuthOnlyAccount       = errors.New("account has no password; use the linked provider")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse      = errors.New("refresh token already used")
	ErrEmailNotVerified       = errors.New("provider email not verified")
	ErrInvalidEmail           = errors.New("invalid email format")
	ErrWeakPassword           = errors.New("password must be at least 8 characters")
)

// AuthResult holds the outcome of a successful Register, Login, Refresh, or
// provider login: a token pair plus the subject it was minted for.
type AuthResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Roles        []string  `json:"roles"`
}

// RequestMeta carries transport-level facts about the request for the login log.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmailAndTenant(ctx context.Context, email, tenantID string) (*userdomain.User, error)
	GetByOAuthID(ctx context.Context, provider, oauthID, tenantID string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	LinkOAuth(ctx context.Context, id, provider, oauthID, displayName, picture string) error
	SetLastLogin(ctx context.Context, id string) error
}

// LoginRecorder receives login-attempt entries. Recording is best-effort and
// must never fail or delay the login path.
type LoginRecorder interface {
	RecordAsync(e *logdomain.Entry)
}

// AuthService implements register, login, refresh-token exchange, logout, and
// provider login for accounts scoped to a tenant.
type AuthService struct {
	users     UserRepo
	registry  *refreshtoken.Registry
	hasher    *security.Hasher
	tokens    *security.TokenProvider
	logs      LoginRecorder
	providers oauth.Providers
	events    telemetry.EventEmitter
}

// NewAuthService returns an AuthService with the given dependencies. logs,
// providers, and events may be nil; nil providers disable provider login.
func NewAuthService(
	users UserRepo,
	registry *refreshtoken.Registry,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	logs LoginRecorder,
	providers oauth.Providers,
	events telemetry.EventEmitter,
) *AuthService {
	return &AuthService{
		users:     users,
		registry:  registry,
		hasher:    hasher,
		tokens:    tokens,
		logs:      logs,
		providers: providers,
		events:    events,
	}
}

// Register creates an active account in the tenant and returns a token pair,
// so registration doubles as the first login.
func (s *AuthService) Register(ctx context.Context, tenantID, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmailAndTenant(ctx, email, tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	user := userdomain.New(tenantID, email, hashed)
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	res, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.emit(telemetry.EventRegister, tenantID, user.ID.Hex(), user.Email, "success", "")
	return res, nil
}

// Login authenticates with email/password inside the tenant and returns a
// token pair. Every attempt is recorded; the failure reason never reaches the
// client beyond ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, tenantID, email, password string, meta RequestMeta) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	attempt := logdomain.NewAttempt(tenantID, email, meta.IP, meta.UserAgent)

	if email == "" || password == "" {
		s.record(attempt, "missing credentials")
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmailAndTenant(ctx, email, tenantID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.record(attempt, "unknown account")
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		// The attempt log keeps the real reason; the client must not be able
		// to distinguish a disabled account from bad credentials.
		s.record(attempt, "account disabled")
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		s.record(attempt, "oauth-only account")
		return nil, ErrOAuthOnlyAccount
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.record(attempt, "wrong password")
		return nil, ErrInvalidCredentials
	}

	res, err := s.issuePair(ctx, user)
	if err != nil {
		s.record(attempt, "token issuance failed")
		return nil, err
	}
	if err := s.users.SetLastLogin(ctx, user.ID.Hex()); err != nil {
		log.Printf("auth: set last login for %s: %v", user.ID.Hex(), err)
	}
	attempt.MarkSuccess(user.ID.Hex(), true, true)
	if s.logs != nil {
		s.logs.RecordAsync(attempt)
	}
	s.emit(telemetry.EventLogin, tenantID, user.ID.Hex(), user.Email, "success", meta.IP)
	return res, nil
}

// LoginWithProvider exchanges a provider authorization code and logs the
// verified identity into the tenant, creating the account on first login and
// linking the provider to an existing same-email account otherwise. An empty
// provider name selects Google.
func (s *AuthService) LoginWithProvider(ctx context.Context, tenantID, provider, code, redirectURI string, meta RequestMeta) (*AuthResult, error) {
	if provider == "" {
		provider = "google"
	}
	exchanger := s.providers.For(provider)
	if exchanger == nil {
		return nil, oauth.ErrExchangeFailed
	}
	ident, err := exchanger.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(strings.ToLower(ident.Email))
	attempt := logdomain.NewAttempt(tenantID, email, meta.IP, meta.UserAgent)

	user, err := s.users.GetByOAuthID(ctx, ident.Provider, ident.ExternalID, tenantID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Link by verified email, or create a fresh OAuth-only account.
		if !ident.EmailVerified {
			s.record(attempt, "provider email not verified")
			return nil, ErrEmailNotVerified
		}
		user, err = s.users.GetByEmailAndTenant(ctx, email, tenantID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			if err := s.users.LinkOAuth(ctx, user.ID.Hex(), ident.Provider, ident.ExternalID, ident.DisplayName, ident.Picture); err != nil {
				return nil, err
			}
		} else {
			user = userdomain.New(tenantID, email, "")
			user.OAuthProvider = ident.Provider
			user.OAuthID = ident.ExternalID
			user.DisplayName = ident.DisplayName
			user.Picture = ident.Picture
			user.EmailVerified = true
			if err := s.users.Create(ctx, user); err != nil {
				return nil, err
			}
		}
	}
	if !user.Active {
		s.record(attempt, "account disabled")
		return nil, ErrAccountDisabled
	}

	res, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetLastLogin(ctx, user.ID.Hex()); err != nil {
		log.Printf("auth: set last login for %s: %v", user.ID.Hex(), err)
	}
	attempt.MarkSuccess(user.ID.Hex(), true, true)
	if s.logs != nil {
		s.logs.RecordAsync(attempt)
	}
	s.emit(telemetry.EventLogin, tenantID, user.ID.Hex(), user.Email, "success", meta.IP)
	return res, nil
}

// Refresh exchanges a live refresh token for a fresh pair. The presented token
// leaves the live set atomically with the replacement entering it; presenting
// it again yields ErrRefreshTokenReuse.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidRefreshToken
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	newRefresh, _, _, err := s.tokens.IssueRefresh(user.ID.Hex())
	if err != nil {
		return nil, err
	}
	err = s.registry.Rotate(ctx, user.ID.Hex(), refreshToken, newRefresh)
	if errors.Is(err, refreshtoken.ErrTokenReused) {
		s.emit(telemetry.EventTokenRefresh, user.TenantID, user.ID.Hex(), user.Email, "reuse detected", "")
		return nil, ErrRefreshTokenReuse
	}
	if errors.Is(err, refreshtoken.ErrUnknownAccount) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}

	accessToken, _, accessExp, err := s.tokens.IssueAccess(user.ID.Hex(), user.Email, user.Roles, user.Active)
	if err != nil {
		return nil, err
	}
	s.emit(telemetry.EventTokenRefresh, user.TenantID, user.ID.Hex(), user.Email, "success", "")
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    accessExp,
		UserID:       user.ID.Hex(),
		Email:        user.Email,
		Roles:        user.Roles,
	}, nil
}

// Logout removes the refresh token from its account's live set. Unknown or
// malformed tokens are a no-op so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.registry.Revoke(ctx, claims.Subject, refreshToken); err != nil {
		return err
	}
	s.emit(telemetry.EventLogout, "", claims.Subject, "", "success", "")
	return nil
}

// issuePair mints an access/refresh pair for the user and grants the refresh
// token into the account's live set.
func (s *AuthService) issuePair(ctx context.Context, user *userdomain.User) (*AuthResult, error) {
	userID := user.ID.Hex()
	accessToken, _, accessExp, err := s.tokens.IssueAccess(userID, user.Email, user.Roles, user.Active)
	if err != nil {
		return nil, err
	}
	refreshToken, _, _, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Grant(ctx, userID, refreshToken); err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
		UserID:       userID,
		Email:        user.Email,
		Roles:        user.Roles,
	}, nil
}

func (s *AuthService) record(attempt *logdomain.Entry, reason string) {
	attempt.MarkFailure(reason)
	if s.logs != nil {
		s.logs.RecordAsync(attempt)
	}
	s.emit(telemetry.EventLogin, attempt.TenantID, "", attempt.Email, reason, attempt.IPAddress)
}

func (s *AuthService) emit(eventType, tenantID, userID, email, outcome, ip string) {
	if s.events == nil {
		return
	}
	telemetry.EmitAsync(s.events, &telemetry.Event{
		Type:     eventType,
		TenantID: tenantID,
		UserID:   userID,
		Email:    email,
		Outcome:  outcome,
		IP:       ip,
		At:       time.Now().UTC(),
	})
}

func validateEmail(email string) error {
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}
