package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tenant-identity-service/internal/loginlog/domain"
)

// Collection is the MongoDB collection holding login-log documents.
const Collection = "logs"

type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository returns a login-log repository backed by the given database.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(Collection)}
}

// Insert stores the entry.
func (r *MongoRepository) Insert(ctx context.Context, e *domain.Entry) error {
	_, err := r.coll.InsertOne(ctx, e)
	return err
}

// ListByUserAndTenant returns the newest entries first, up to limit.
func (r *MongoRepository) ListByUserAndTenant(ctx context.Context, userID, tenantID string, limit int64) ([]*domain.Entry, error) {
	return r.list(ctx, bson.M{"user_id": userID, "tenant_id": tenantID}, limit)
}

// ListByTenant returns the newest entries first, up to limit.
func (r *MongoRepository) ListByTenant(ctx context.Context, tenantID string, limit int64) ([]*domain.Entry, error) {
	return r.list(ctx, bson.M{"tenant_id": tenantID}, limit)
}

func (r *MongoRepository) list(ctx context.Context, filter bson.M, limit int64) ([]*domain.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domain.Entry
	for cur.Next(ctx) {
		var e domain.Entry
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, cur.Err()
}

// CountSince returns total and successful attempt counts for the tenant over
// the trailing period.
func (r *MongoRepository) CountSince(ctx context.Context, tenantID string, days int) (int64, int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -days)
	base := bson.M{"tenant_id": tenantID, "timestamp": bson.M{"$gte": threshold}}
	total, err := r.coll.CountDocuments(ctx, base)
	if err != nil {
		return 0, 0, err
	}
	successFilter := bson.M{"tenant_id": tenantID, "timestamp": bson.M{"$gte": threshold}, "success": true}
	successful, err := r.coll.CountDocuments(ctx, successFilter)
	if err != nil {
		return 0, 0, err
	}
	return total, successful, nil
}
