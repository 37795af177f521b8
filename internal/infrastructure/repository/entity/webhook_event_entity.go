package entity

import (
	"encoding/json"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookEventDoc represents a received webhook in MongoDB
type MongoWebhookEventDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Shop        string             `bson:"shop"`
	Topic       string             `bson:"topic"`
	WebhookID   string             `bson:"webhookId,omitempty"`
	Payload     interface{}        `bson:"payload"`
	Status      string             `bson:"status"`
	Processed   bool               `bson:"processed"`
	Error       *string            `bson:"error"`
	ReceivedAt  time.Time          `bson:"receivedAt"`
	ProcessedAt *time.Time         `bson:"processedAt"`
}

// MongoWebhookEventDocFromDomain converts a webhook event. Payloads that are not valid
// JSON are stored as raw strings.
func MongoWebhookEventDocFromDomain(e *domain.WebhookEvent) *MongoWebhookEventDoc {
	var payload interface{}
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			payload = string(e.Payload)
		}
	}

	return &MongoWebhookEventDoc{
		Shop:        e.Shop,
		Topic:       string(e.Topic),
		WebhookID:   e.WebhookID,
		Payload:     payload,
		Status:      string(e.Status),
		Processed:   e.Processed,
		Error:       e.Error,
		ReceivedAt:  e.ReceivedAt,
		ProcessedAt: e.ProcessedAt,
	}
}
