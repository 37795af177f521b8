package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/repository/entity"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConnectionRepository implements ConnectionRepository using MongoDB
type MongoConnectionRepository struct {
	collection *mongo.Collection
}

// NewMongoConnectionRepository creates a new MongoDB connection repository
func NewMongoConnectionRepository(db *mongo.Database) ports.ConnectionRepository {
	return &MongoConnectionRepository{
		collection: db.Collection(ConnectionsCollection),
	}
}

// GetByShop retrieves the connection record of a shop
func (r *MongoConnectionRepository) GetByShop(ctx context.Context, shop string) (*domain.Connection, error) {
	var doc entity.MongoConnectionDoc
	err := r.collection.FindOne(ctx, bson.M{"shop": shop}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return doc.ToDomain(), nil
}

// UpsertStatus creates or updates the shop's record with the given status
func (r *MongoConnectionRepository) UpsertStatus(ctx context.Context, shop string, update domain.ConnectionUpdate) error {
	now := time.Now()
	set := bson.M{
		"status":       string(update.Status),
		"errorMessage": update.ErrorMessage,
		"updatedAt":    now,
	}
	if ids := update.PipelineIDs; ids != nil {
		set["connectionId"] = domain.StringPtr(ids.ConnectionID)
		set["sourceId"] = domain.StringPtr(ids.SourceID)
		set["destinationId"] = domain.StringPtr(ids.DestinationID)
		set["jobId"] = domain.StringPtr(ids.JobID)
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shop": shop}
	doc := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"syncCount": int64(0), "createdAt": now},
	}

	_, err := r.collection.UpdateOne(ctx, filter, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to save connection status: %w", err)
	}

	return nil
}

// RecordSuccess marks the shop connected and increments syncCount in the same update
func (r *MongoConnectionRepository) RecordSuccess(ctx context.Context, shop string, ids domain.PipelineIDs, syncedAt time.Time) (*domain.Connection, error) {
	now := time.Now()
	filter := bson.M{"shop": shop}
	doc := bson.M{
		"$set": bson.M{
			"status":        string(domain.ConnectionStatusConnected),
			"connectionId":  domain.StringPtr(ids.ConnectionID),
			"sourceId":      domain.StringPtr(ids.SourceID),
			"destinationId": domain.StringPtr(ids.DestinationID),
			"jobId":         domain.StringPtr(ids.JobID),
			"errorMessage":  nil,
			"lastSyncAt":    syncedAt,
			"updatedAt":     now,
		},
		"$inc":         bson.M{"syncCount": int64(1)},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out entity.MongoConnectionDoc
	if err := r.collection.FindOneAndUpdate(ctx, filter, doc, opts).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to record connection success: %w", err)
	}

	return out.ToDomain(), nil
}

// MarkDisconnected flips every record of the shop to disconnected. Missing records stay missing.
func (r *MongoConnectionRepository) MarkDisconnected(ctx context.Context, shop string) (int64, error) {
	result, err := r.collection.UpdateMany(ctx, bson.M{"shop": shop}, bson.M{
		"$set": bson.M{
			"status":    string(domain.ConnectionStatusDisconnected),
			"updatedAt": time.Now(),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark connection disconnected: %w", err)
	}

	return result.MatchedCount, nil
}
