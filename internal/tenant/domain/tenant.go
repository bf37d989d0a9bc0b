package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Tenant is an isolated customer namespace. The document store is the source
// of truth; cached copies are bounded by TTL and erased on every mutation.
type Tenant struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID    string        `bson:"tenant_id" json:"tenant_id"`
	Name        string        `bson:"name" json:"name"`
	Document    string        `bson:"document" json:"document"` // company/tax registration number, unique
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	Active      bool          `bson:"active" json:"active"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updated_at"`
}

// New returns an active tenant with a generated tenant id.
func New(name, document, description string) *Tenant {
	now := time.Now().UTC()
	return &Tenant{
		ID:          bson.NewObjectID(),
		TenantID:    uuid.New().String(),
		Name:        name,
		Document:    document,
		Description: description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate validates the tenant for persistence.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.Document == "" {
		return errors.New("document is required")
	}
	return nil
}

// Update carries optional tenant mutations; nil fields are left unchanged.
type Update struct {
	Name        *string `json:"name,omitempty"`
	Document    *string `json:"document,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}
