// Package db owns the MongoDB connection and the index contract every
// repository relies on.
package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	loginlogrepo "tenant-identity-service/internal/loginlog/repository"
	"tenant-identity-service/internal/passwordreset"
	tenantrepo "tenant-identity-service/internal/tenant/repository"
	userrepo "tenant-identity-service/internal/user/repository"
)

// Open connects to MongoDB and verifies the connection with a bounded ping.
func Open(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repositories depend on. Creation is
// idempotent; existing indexes are left alone.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	// Tenants: both natural keys are unique.
	_, err := database.Collection(tenantrepo.Collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "document", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}

	// Users: email is unique within a tenant, not globally.
	_, err = database.Collection(userrepo.Collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "tenant_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "oauth_provider", Value: 1}, {Key: "oauth_id", Value: 1}, {Key: "tenant_id", Value: 1}}},
	})
	if err != nil {
		return err
	}

	// Login logs: newest-first listings per tenant and per user.
	_, err = database.Collection(loginlogrepo.Collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "tenant_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return err
	}

	// Reset tokens: unique token lookup, email-wide invalidation, expiry sweep.
	_, err = database.Collection(passwordreset.Collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	return err
}
