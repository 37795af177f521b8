package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ConnectionsCollection   = "connections"
	SessionsCollection      = "sessions"
	WebhookEventsCollection = "webhook_events"
	AppLogsCollection       = "app_logs"
	AppMetricsCollection    = "app_metrics"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique shop index on
// connections is what keeps one record per shop under concurrent upserts.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		ConnectionsCollection: {
			{Keys: bson.D{{Key: "shop", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		SessionsCollection: {
			{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "isOnline", Value: 1}}},
		},
		WebhookEventsCollection: {
			{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "receivedAt", Value: -1}}},
			{Keys: bson.D{{Key: "topic", Value: 1}}},
		},
		AppLogsCollection: {
			{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "requestId", Value: 1}}},
		},
		AppMetricsCollection: {
			{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "metricName", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
