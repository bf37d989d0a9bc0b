package service

import (
	"context"
	"sync"
	"testing"
	"time"

	logdomain "tenant-identity-service/internal/loginlog/domain"
	"tenant-identity-service/internal/oauth"
	"tenant-identity-service/internal/refreshtoken"
	"tenant-identity-service/internal/security"
	userdomain "tenant-identity-service/internal/user/domain"

	"golang.org/x/crypto/bcrypt"
)

type memUserRepo struct {
	mu sync.Mutex
	m  map[string]*userdomain.User // keyed by hex id
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{m: make(map[string]*userdomain.User)}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memUserRepo) GetByEmailAndTenant(ctx context.Context, email, tenantID string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.m {
		if u.Email == email && u.TenantID == tenantID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByOAuthID(ctx context.Context, provider, oauthID, tenantID string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.m {
		if u.OAuthProvider == provider && u.OAuthID == oauthID && u.TenantID == tenantID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[u.ID.Hex()] = u
	return nil
}

func (r *memUserRepo) LinkOAuth(ctx context.Context, id, provider, oauthID, displayName, picture string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[id]; ok {
		u.OAuthProvider = provider
		u.OAuthID = oauthID
		u.EmailVerified = true
		if displayName != "" {
			u.DisplayName = displayName
		}
		if picture != "" {
			u.Picture = picture
		}
	}
	return nil
}

func (r *memUserRepo) SetLastLogin(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[id]; ok {
		t := time.Now().UTC()
		u.LastLogin = &t
	}
	return nil
}

func (r *memUserRepo) RefreshTokens(ctx context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	return u.RefreshTokens, nil
}

func (r *memUserRepo) ReplaceRefreshTokens(ctx context.Context, id string, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[id]; ok {
		u.RefreshTokens = tokens
	}
	return nil
}

func (r *memUserRepo) SwapRefreshTokens(ctx context.Context, id, mustContain string, tokens []string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.m[id]
	if !ok {
		return false, nil
	}
	for _, t := range u.RefreshTokens {
		if t == mustContain {
			u.RefreshTokens = tokens
			return true, nil
		}
	}
	return false, nil
}

// recordingLog captures entries synchronously so tests can assert on them.
type recordingLog struct {
	mu      sync.Mutex
	entries []*logdomain.Entry
}

func (l *recordingLog) RecordAsync(e *logdomain.Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

func (l *recordingLog) last() *logdomain.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	return l.entries[len(l.entries)-1]
}

type fakeExchanger struct {
	identity *oauth.Identity
	err      error
}

func (f *fakeExchanger) Exchange(ctx context.Context, code, redirectURI string) (*oauth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func newTestAuthService(t *testing.T) (*AuthService, *memUserRepo, *recordingLog) {
	t.Helper()
	users := newMemUserRepo()
	logs := &recordingLog{}
	hasher := security.NewHasher(bcrypt.MinCost)
	tokens, err := security.NewTestTokenProvider(2*time.Hour, 720*time.Hour)
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	svc := NewAuthService(users, refreshtoken.NewRegistry(users), hasher, tokens, logs, nil, nil)
	return svc, users, logs
}

func TestAuthService_RegisterReturnsTokens(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "tenant-1", "User@Example.com", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("Register should return a token pair")
	}
	if res.Email != "user@example.com" {
		t.Errorf("email should be normalized, got %q", res.Email)
	}
	u, _ := users.GetByID(ctx, res.UserID)
	if u == nil {
		t.Fatal("user should be persisted")
	}
	if len(u.RefreshTokens) != 1 || u.RefreshTokens[0] != res.RefreshToken {
		t.Errorf("refresh token should be granted into the live set, got %v", u.RefreshTokens)
	}

	_, err = svc.Register(ctx, "tenant-1", "user@example.com", "password2")
	if err != ErrEmailAlreadyRegistered {
		t.Errorf("duplicate email: want ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestAuthService_RegisterSameEmailOtherTenant(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "tenant-1", "user@example.com", "password1"); err != nil {
		t.Fatalf("Register tenant-1: %v", err)
	}
	if _, err := svc.Register(ctx, "tenant-2", "user@example.com", "password1"); err != nil {
		t.Fatalf("same email in another tenant should succeed: %v", err)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "tenant-1", "bad-email", "password1"); err == nil {
		t.Error("invalid email should fail")
	}
	if _, err := svc.Register(ctx, "tenant-1", "a@b.co", "short"); err == nil {
		t.Error("short password should fail")
	}
}

func TestAuthService_Login(t *testing.T) {
	svc, _, logs := newTestAuthService(t)
	ctx := context.Background()
	reg, _ := svc.Register(ctx, "tenant-1", "user@example.com", "password1")

	res, err := svc.Login(ctx, "tenant-1", "user@example.com", "password1", RequestMeta{IP: "10.0.0.1", UserAgent: "go-test"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.UserID != reg.UserID {
		t.Errorf("user id: want %q, got %q", reg.UserID, res.UserID)
	}
	e := logs.last()
	if e == nil || !e.Success {
		t.Fatal("successful login should record a success entry")
	}
	if e.UserID != reg.UserID || e.IPAddress != "10.0.0.1" {
		t.Errorf("entry fields: got user %q ip %q", e.UserID, e.IPAddress)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, users, logs := newTestAuthService(t)
	ctx := context.Background()
	reg, _ := svc.Register(ctx, "tenant-1", "user@example.com", "password1")

	_, err := svc.Login(ctx, "tenant-1", "user@example.com", "wrong-password", RequestMeta{})
	if err != ErrInvalidCredentials {
		t.Errorf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if e := logs.last(); e == nil || e.Success {
		t.Error("failed login should record a failure entry")
	}

	_, err = svc.Login(ctx, "tenant-2", "user@example.com", "password1", RequestMeta{})
	if err != ErrInvalidCredentials {
		t.Errorf("wrong tenant: want ErrInvalidCredentials, got %v", err)
	}

	// A disabled account is indistinguishable from bad credentials to the
	// caller: the real reason lives only in the attempt log.
	users.mu.Lock()
	users.m[reg.UserID].Active = false
	users.mu.Unlock()
	_, err = svc.Login(ctx, "tenant-1", "user@example.com", "password1", RequestMeta{})
	if err != ErrInvalidCredentials {
		t.Errorf("disabled account: want ErrInvalidCredentials, got %v", err)
	}
	if e := logs.last(); e == nil || e.FailureReason != "account disabled" {
		t.Errorf("disabled account: attempt log should carry the real reason, got %+v", e)
	}
}

func TestAuthService_LoginOAuthOnlyAccount(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()

	u := userdomain.New("tenant-1", "oauth@example.com", "")
	u.OAuthProvider = "google"
	u.OAuthID = "ext-1"
	_ = users.Create(ctx, u)

	_, err := svc.Login(ctx, "tenant-1", "oauth@example.com", "anything", RequestMeta{})
	if err != ErrOAuthOnlyAccount {
		t.Errorf("oauth-only account: want ErrOAuthOnlyAccount, got %v", err)
	}
}

func TestAuthService_RefreshRotatesSingleUse(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()
	reg, _ := svc.Register(ctx, "tenant-1", "user@example.com", "password1")

	res, err := svc.Refresh(ctx, reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.RefreshToken == reg.RefreshToken {
		t.Fatal("Refresh should return a new pair")
	}

	// The consumed token is out of the live set: a replay is rejected.
	if _, err := svc.Refresh(ctx, reg.RefreshToken); err != ErrRefreshTokenReuse {
		t.Errorf("replayed refresh: want ErrRefreshTokenReuse, got %v", err)
	}

	u, _ := users.GetByID(ctx, reg.UserID)
	if len(u.RefreshTokens) != 1 || u.RefreshTokens[0] != res.RefreshToken {
		t.Errorf("live set after rotation: got %v", u.RefreshTokens)
	}
}

func TestAuthService_RefreshRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, ""); err != ErrInvalidRefreshToken {
		t.Errorf("empty token: want ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := svc.Refresh(ctx, "not-a-jwt"); err != ErrInvalidRefreshToken {
		t.Errorf("malformed token: want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthService_LiveSetCapped(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()
	reg, _ := svc.Register(ctx, "tenant-1", "user@example.com", "password1")

	// Register plus six logins; the cap keeps only the newest five tokens.
	var last string
	for i := 0; i < 6; i++ {
		res, err := svc.Login(ctx, "tenant-1", "user@example.com", "password1", RequestMeta{})
		if err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
		last = res.RefreshToken
	}
	u, _ := users.GetByID(ctx, reg.UserID)
	if len(u.RefreshTokens) != refreshtoken.MaxLiveTokens {
		t.Fatalf("live set size: want %d, got %d", refreshtoken.MaxLiveTokens, len(u.RefreshTokens))
	}
	if u.RefreshTokens[len(u.RefreshTokens)-1] != last {
		t.Error("newest token should be last in the live set")
	}
	// The very first token was evicted; using it is a reuse signal.
	if _, err := svc.Refresh(ctx, reg.RefreshToken); err != ErrRefreshTokenReuse {
		t.Errorf("evicted token: want ErrRefreshTokenReuse, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()
	reg, _ := svc.Register(ctx, "tenant-1", "user@example.com", "password1")

	if err := svc.Logout(ctx, reg.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	u, _ := users.GetByID(ctx, reg.UserID)
	if len(u.RefreshTokens) != 0 {
		t.Errorf("live set after logout: got %v", u.RefreshTokens)
	}
	if _, err := svc.Refresh(ctx, reg.RefreshToken); err != ErrRefreshTokenReuse {
		t.Errorf("refresh after logout: want ErrRefreshTokenReuse, got %v", err)
	}

	// Idempotent: repeated and garbage logouts are no-ops.
	if err := svc.Logout(ctx, reg.RefreshToken); err != nil {
		t.Errorf("repeat logout: %v", err)
	}
	if err := svc.Logout(ctx, "not-a-jwt"); err != nil {
		t.Errorf("garbage logout: %v", err)
	}
}

func TestAuthService_LoginWithProviderCreatesAccount(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	svc.providers = oauth.Providers{"google": &fakeExchanger{identity: &oauth.Identity{
		Provider:      "google",
		ExternalID:    "ext-42",
		Email:         "New@Example.com",
		EmailVerified: true,
		DisplayName:   "New User",
	}}}
	ctx := context.Background()

	res, err := svc.LoginWithProvider(ctx, "tenant-1", "google", "code", "https://app/cb", RequestMeta{})
	if err != nil {
		t.Fatalf("LoginWithProvider: %v", err)
	}
	u, _ := users.GetByID(ctx, res.UserID)
	if u == nil {
		t.Fatal("account should be created on first provider login")
	}
	if u.OAuthProvider != "google" || u.OAuthID != "ext-42" || u.PasswordHash != "" {
		t.Errorf("oauth account fields: %+v", u)
	}
	if u.Email != "new@example.com" {
		t.Errorf("email should be normalized, got %q", u.Email)
	}

	// Second login finds the same account.
	res2, err := svc.LoginWithProvider(ctx, "tenant-1", "google", "code", "https://app/cb", RequestMeta{})
	if err != nil {
		t.Fatalf("second LoginWithProvider: %v", err)
	}
	if res2.UserID != res.UserID {
		t.Error("provider login should reuse the linked account")
	}
}

func TestAuthService_LoginWithProviderLinksByEmail(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()
	reg, _ := svc.Register(ctx, "tenant-1", "user@example.com", "password1")

	svc.providers = oauth.Providers{"google": &fakeExchanger{identity: &oauth.Identity{
		Provider:      "google",
		ExternalID:    "ext-7",
		Email:         "user@example.com",
		EmailVerified: true,
	}}}
	res, err := svc.LoginWithProvider(ctx, "tenant-1", "google", "code", "", RequestMeta{})
	if err != nil {
		t.Fatalf("LoginWithProvider: %v", err)
	}
	if res.UserID != reg.UserID {
		t.Error("verified same-email identity should log into the existing account")
	}
	u, _ := users.GetByID(ctx, reg.UserID)
	if u.OAuthProvider != "google" || u.OAuthID != "ext-7" {
		t.Error("provider identity should be linked to the account")
	}
}

func TestAuthService_LoginWithProviderUnverifiedEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	svc.providers = oauth.Providers{"google": &fakeExchanger{identity: &oauth.Identity{
		Provider:   "google",
		ExternalID: "ext-9",
		Email:      "user@example.com",
	}}}

	_, err := svc.LoginWithProvider(context.Background(), "tenant-1", "google", "code", "", RequestMeta{})
	if err != ErrEmailNotVerified {
		t.Errorf("unverified email: want ErrEmailNotVerified, got %v", err)
	}
}

func TestAuthService_LoginWithProviderSelection(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	svc.providers = oauth.Providers{"google": &fakeExchanger{identity: &oauth.Identity{
		Provider:      "google",
		ExternalID:    "ext-1",
		Email:         "user@example.com",
		EmailVerified: true,
	}}}
	ctx := context.Background()

	// An empty provider name selects Google.
	if _, err := svc.LoginWithProvider(ctx, "tenant-1", "", "code", "", RequestMeta{}); err != nil {
		t.Errorf("default provider: %v", err)
	}

	// A provider without a configured exchanger is rejected.
	if _, err := svc.LoginWithProvider(ctx, "tenant-1", "apple", "code", "", RequestMeta{}); err != oauth.ErrExchangeFailed {
		t.Errorf("unconfigured provider: want ErrExchangeFailed, got %v", err)
	}
}
