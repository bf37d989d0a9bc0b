package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Entry records one login attempt, successful or not. Entries are immutable
// once written; they exist for auditing and are scoped to a tenant.
type Entry struct {
	ID            bson.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID        string        `bson:"user_id,omitempty" json:"user_id,omitempty"` // set only on success
	TenantID      string        `bson:"tenant_id" json:"tenant_id"`
	Email         string        `bson:"email" json:"email"`
	Success       bool          `bson:"success" json:"success"`
	FailureReason string        `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	IPAddress     string        `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent     string        `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	RequestMethod string        `bson:"request_method" json:"request_method"`
	RequestPath   string        `bson:"request_path" json:"request_path"`
	Timestamp     time.Time     `bson:"timestamp" json:"timestamp"`
	TokenIssued   bool          `bson:"token_generated" json:"token_generated"`
	RefreshIssued bool          `bson:"refresh_token_generated" json:"refresh_token_generated"`
	SessionID     string        `bson:"session_id" json:"session_id"`
}

// NewAttempt returns a failed entry for the attempt; callers mark it
// successful once credentials check out.
func NewAttempt(tenantID, email, ip, userAgent string) *Entry {
	return &Entry{
		ID:            bson.NewObjectID(),
		TenantID:      tenantID,
		Email:         email,
		Success:       false,
		IPAddress:     ip,
		UserAgent:     userAgent,
		RequestMethod: "POST",
		RequestPath:   "/login",
		Timestamp:     time.Now().UTC(),
		SessionID:     uuid.New().String(),
	}
}

// MarkSuccess records the issued credentials for a successful login.
func (e *Entry) MarkSuccess(userID string, tokenIssued, refreshIssued bool) {
	e.UserID = userID
	e.Success = true
	e.FailureReason = ""
	e.TokenIssued = tokenIssued
	e.RefreshIssued = refreshIssued
}

// MarkFailure records why the attempt was rejected.
func (e *Entry) MarkFailure(reason string) {
	e.Success = false
	e.FailureReason = reason
	e.TokenIssued = false
	e.RefreshIssued = false
}

// Stats aggregates login outcomes over a period.
type Stats struct {
	TotalAttempts    int64   `json:"total_attempts"`
	SuccessfulLogins int64   `json:"successful_logins"`
	FailedLogins     int64   `json:"failed_logins"`
	SuccessRate      float64 `json:"success_rate"`
	PeriodDays       int     `json:"period_days"`
}
