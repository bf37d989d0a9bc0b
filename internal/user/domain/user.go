package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RoleUser is the default role granted on registration.
const RoleUser = "user"

// RoleAdmin marks accounts allowed to manage tenants and read logs.
const RoleAdmin = "admin"

// User is the account aggregate, scoped to exactly one tenant. It owns the
// live refresh-token set; the ordered slice (insertion order = recency) is
// capped by the refresh-token registry.
type User struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	TenantID      string        `bson:"tenant_id"`
	Email         string        `bson:"email"`
	PasswordHash  string        `bson:"password,omitempty"` // empty for OAuth-only accounts
	Roles         []string      `bson:"roles"`
	Active        bool          `bson:"is_active"`
	EmailVerified bool          `bson:"email_verified"`
	OAuthProvider string        `bson:"oauth_provider,omitempty"`
	OAuthID       string        `bson:"oauth_id,omitempty"`
	DisplayName   string        `bson:"display_name,omitempty"`
	Picture       string        `bson:"picture,omitempty"`
	RefreshTokens []string      `bson:"refresh_tokens"`
	LastLogin     *time.Time    `bson:"last_login,omitempty"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
}

// New returns an active user with the default role and an empty token set.
func New(tenantID, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:            bson.NewObjectID(),
		TenantID:      tenantID,
		Email:         email,
		PasswordHash:  passwordHash,
		Roles:         []string{RoleUser},
		Active:        true,
		RefreshTokens: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// Validate validates the user for persistence.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.TenantID == "" {
		return errors.New("tenant id is required")
	}
	return nil
}
