package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/repository/entity"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoWebhookEventRepository implements WebhookEventRepository using MongoDB
type MongoWebhookEventRepository struct {
	collection *mongo.Collection
}

// NewMongoWebhookEventRepository creates a new MongoDB webhook event repository
func NewMongoWebhookEventRepository(db *mongo.Database) ports.WebhookEventRepository {
	return &MongoWebhookEventRepository{
		collection: db.Collection(WebhookEventsCollection),
	}
}

// Create inserts the event and sets its ID
func (r *MongoWebhookEventRepository) Create(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookEventDocFromDomain(event)
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		event.ID = id.Hex()
	}
	event.ReceivedAt = doc.ReceivedAt

	return nil
}

// MarkProcessed flags the event as handled
func (r *MongoWebhookEventRepository) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	return r.update(ctx, id, bson.M{
		"status":      string(domain.WebhookEventProcessed),
		"processed":   true,
		"processedAt": processedAt,
	})
}

// MarkFailed records the failure message on the event
func (r *MongoWebhookEventRepository) MarkFailed(ctx context.Context, id string, message string, failedAt time.Time) error {
	return r.update(ctx, id, bson.M{
		"status":      string(domain.WebhookEventFailed),
		"processed":   false,
		"error":       message,
		"processedAt": failedAt,
	})
}

func (r *MongoWebhookEventRepository) update(ctx context.Context, id string, set bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid webhook event id: %w", err)
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("failed to update webhook event: %w", err)
	}
	return nil
}
