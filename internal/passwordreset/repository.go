package passwordreset

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Collection is the MongoDB collection holding reset-token documents.
const Collection = "password_reset_tokens"

// Repository is the reset-token store boundary.
type Repository interface {
	Insert(ctx context.Context, t *Token) error
	GetByToken(ctx context.Context, token string) (*Token, error)
	MarkUsed(ctx context.Context, token string) (bool, error)
	// InvalidateAllForEmail marks every outstanding token for email as used,
	// returning the count affected.
	InvalidateAllForEmail(ctx context.Context, email string) (int64, error)
	// DeleteExpired removes tokens past expiry, returning the count removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository returns a reset-token repository backed by the given database.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(Collection)}
}

// Insert stores the token document.
func (r *MongoRepository) Insert(ctx context.Context, t *Token) error {
	_, err := r.coll.InsertOne(ctx, t)
	return err
}

// GetByToken returns the token document, or nil if not found.
func (r *MongoRepository) GetByToken(ctx context.Context, token string) (*Token, error) {
	var t Token
	err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkUsed flips the used flag, reporting whether the token existed and was unused.
func (r *MongoRepository) MarkUsed(ctx context.Context, token string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"token": token, "used": false},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// InvalidateAllForEmail marks every outstanding token for email as used.
func (r *MongoRepository) InvalidateAllForEmail(ctx context.Context, email string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteExpired removes tokens past expiry. Runs from the worker sweep, never
// from the hot validation path.
func (r *MongoRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
