package entity

import (
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoConnectionDoc represents a shop's pipeline connection in MongoDB
type MongoConnectionDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Shop          string             `bson:"shop"`
	Status        string             `bson:"status"`
	ConnectionID  *string            `bson:"connectionId"`
	SourceID      *string            `bson:"sourceId"`
	DestinationID *string            `bson:"destinationId"`
	JobID         *string            `bson:"jobId"`
	ErrorMessage  *string            `bson:"errorMessage"`
	LastSyncAt    *time.Time         `bson:"lastSyncAt"`
	SyncCount     int64              `bson:"syncCount"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoConnectionDoc) ToDomain() *domain.Connection {
	return &domain.Connection{
		ID:            d.ID.Hex(),
		Shop:          d.Shop,
		Status:        domain.ConnectionStatus(d.Status),
		ConnectionID:  d.ConnectionID,
		SourceID:      d.SourceID,
		DestinationID: d.DestinationID,
		JobID:         d.JobID,
		ErrorMessage:  d.ErrorMessage,
		LastSyncAt:    d.LastSyncAt,
		SyncCount:     d.SyncCount,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
