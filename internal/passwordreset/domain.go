// Package passwordreset implements the single-use, time-bounded password
// reset token lifecycle: Issued → {Valid, Used, Expired}.
package passwordreset

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Token is one outstanding reset grant. Several may exist per email at once;
// consuming any one of them (or changing the password by any path)
// invalidates them all.
type Token struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	TenantID  string        `bson:"tenant_id"`
	Email     string        `bson:"email"`
	Token     string        `bson:"token"`
	CreatedAt time.Time     `bson:"created_at"`
	ExpiresAt time.Time     `bson:"expires_at"`
	Used      bool          `bson:"used"`
	IPAddress string        `bson:"ip_address,omitempty"` // requester, for auditing
}

// NewToken returns an unused token with a fresh opaque value and the given lifetime.
func NewToken(tenantID, email string, ttl time.Duration, ip string) *Token {
	now := time.Now().UTC()
	return &Token{
		ID:        bson.NewObjectID(),
		TenantID:  tenantID,
		Email:     email,
		Token:     uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Used:      false,
		IPAddress: ip,
	}
}

// Valid reports whether the token can still be consumed. A token is valid iff
// it is unused and not past expiry; no other state is reachable without an
// explicit mutation.
func (t *Token) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
