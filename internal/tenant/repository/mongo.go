package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"tenant-identity-service/internal/tenant/domain"
)

// Collection is the MongoDB collection holding tenant documents.
const Collection = "tenants"

type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository returns a tenant repository backed by the given database.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(Collection)}
}

// GetByTenantID returns the tenant, or nil if not found.
func (r *MongoRepository) GetByTenantID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.coll.FindOne(ctx, bson.M{"tenant_id": tenantID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByDocument returns the tenant holding the registration document, or nil.
func (r *MongoRepository) GetByDocument(ctx context.Context, document string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.coll.FindOne(ctx, bson.M{"document": document}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all tenants, optionally only the active ones.
func (r *MongoRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Tenant, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domain.Tenant
	for cur.Next(ctx) {
		var t domain.Tenant
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, cur.Err()
}

// Create inserts the tenant document.
func (r *MongoRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.coll.InsertOne(ctx, t)
	return err
}

// Update applies the non-nil fields of upd and returns the updated tenant,
// or nil if the tenant does not exist.
func (r *MongoRepository) Update(ctx context.Context, tenantID string, upd domain.Update) (*domain.Tenant, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Document != nil {
		set["document"] = *upd.Document
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Active != nil {
		set["active"] = *upd.Active
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"tenant_id": tenantID}, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, nil
	}
	return r.GetByTenantID(ctx, tenantID)
}

// SetActive flips the active flag (soft activate/deactivate), reporting
// whether the tenant existed.
func (r *MongoRepository) SetActive(ctx context.Context, tenantID string, active bool) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"tenant_id": tenantID}, bson.M{"$set": bson.M{
		"active":     active,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Delete removes the tenant document permanently, reporting whether it existed.
func (r *MongoRepository) Delete(ctx context.Context, tenantID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
