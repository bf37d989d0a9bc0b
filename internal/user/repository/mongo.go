package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"tenant-identity-service/internal/user/domain"
)

// Collection is the MongoDB collection holding user documents.
const Collection = "users"

type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository returns a user repository backed by the given database.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(Collection)}
}

// GetByID returns the user for the hex object id, or nil if not found.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var u domain.User
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmailAndTenant returns the user for the compound natural key, or nil if not found.
func (r *MongoRepository) GetByEmailAndTenant(ctx context.Context, email, tenantID string) (*domain.User, error) {
	var u domain.User
	err := r.coll.FindOne(ctx, bson.M{"email": email, "tenant_id": tenantID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByOAuthID returns the user linked to the given provider identity within the tenant, or nil.
func (r *MongoRepository) GetByOAuthID(ctx context.Context, provider, oauthID, tenantID string) (*domain.User, error) {
	var u domain.User
	err := r.coll.FindOne(ctx, bson.M{
		"oauth_provider": provider,
		"oauth_id":       oauthID,
		"tenant_id":      tenantID,
	}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts the user document. The unique (email, tenant_id) index makes
// duplicate registration a store error.
func (r *MongoRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.coll.InsertOne(ctx, u)
	return err
}

// UpdatePassword sets a new password hash and clears the live refresh-token
// set, forcing every session to re-authenticate after a password change.
func (r *MongoRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"password":       passwordHash,
		"refresh_tokens": []string{},
		"updated_at":     time.Now().UTC(),
	}})
	return err
}

// LinkOAuth attaches a provider identity to an existing account. Profile
// fields are only filled in, never overwritten with empty values.
func (r *MongoRepository) LinkOAuth(ctx context.Context, id, provider, oauthID, displayName, picture string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	set := bson.M{
		"oauth_provider": provider,
		"oauth_id":       oauthID,
		"email_verified": true,
		"updated_at":     time.Now().UTC(),
	}
	if displayName != "" {
		set["display_name"] = displayName
	}
	if picture != "" {
		set["picture"] = picture
	}
	_, err = r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	return err
}

// SetLastLogin stamps the user's last successful login.
func (r *MongoRepository) SetLastLogin(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"last_login": time.Now().UTC(),
	}})
	return err
}

// RefreshTokens returns the user's live refresh-token set in insertion order.
func (r *MongoRepository) RefreshTokens(ctx context.Context, id string) ([]string, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return u.RefreshTokens, nil
}

// ReplaceRefreshTokens overwrites the live set unconditionally.
func (r *MongoRepository) ReplaceRefreshTokens(ctx context.Context, id string, tokens []string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"refresh_tokens": tokens,
		"updated_at":     time.Now().UTC(),
	}})
	return err
}

// SwapRefreshTokens overwrites the live set only if mustContain is still
// present in the stored document. The filter doubles as the compare of a
// compare-and-swap: a concurrent rotation that already removed mustContain
// leaves the document unmatched and the swap reports false.
func (r *MongoRepository) SwapRefreshTokens(ctx context.Context, id, mustContain string, tokens []string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "refresh_tokens": mustContain},
		bson.M{"$set": bson.M{
			"refresh_tokens": tokens,
			"updated_at":     time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
