package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used across services.
const (
	UsersCollection         = "users"
	ListingsCollection      = "listings"
	ListingImagesCollection = "listing_images"
	FavoritesCollection     = "favorites"
	ConversationsCollection = "conversations"
	MessagesCollection      = "messages"
	ValuationsCollection    = "valuations"
	PaymentsCollection      = "payments"
	ActivityLogCollection   = "activity_log"
	PlacesCollection        = "places"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, client.Database(dbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes the invariants and search paths rely
// on. Safe to call on every startup; CreateMany is idempotent for
// identical specs.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "subject_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ListingsCollection: {
			// Derived search vector; the raw title/body are never indexed.
			{Keys: bson.D{{Key: "search_text", Value: "text"}}},
			{Keys: bson.D{{Key: "location.point", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "mode", Value: 1}, {Key: "category", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		ListingImagesCollection: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "position", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		FavoritesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "listing_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ConversationsCollection: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "user_lo", Value: 1}, {Key: "user_hi", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		PlacesCollection: {
			{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "alt_names", Value: "text"}}},
			{Keys: bson.D{{Key: "level", Value: 1}, {Key: "region", Value: 1}, {Key: "city", Value: 1}}},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
