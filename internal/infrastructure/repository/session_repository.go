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

// MongoSessionRepository implements SessionRepository using MongoDB.
// Access tokens are encrypted before they are written.
type MongoSessionRepository struct {
	collection *mongo.Collection
	encryption ports.EncryptionService
}

// NewMongoSessionRepository creates a new MongoDB session repository
func NewMongoSessionRepository(db *mongo.Database, encryption ports.EncryptionService) ports.SessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection(SessionsCollection),
		encryption: encryption,
	}
}

// Save creates or replaces a session by id
func (r *MongoSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	token, err := r.encryption.Encrypt(session.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	doc := entity.MongoSessionDocFromDomain(session, token)
	doc.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": session.ID}
	update := bson.M{"$set": doc}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its id
func (r *MongoSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindOffline retrieves the shop's offline session
func (r *MongoSessionRepository) FindOffline(ctx context.Context, shop string) (*domain.Session, error) {
	return r.findOne(ctx, bson.M{"shop": shop, "isOnline": false})
}

// UpdateScope overwrites the scope of a session
func (r *MongoSessionRepository) UpdateScope(ctx context.Context, id string, scope string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"scope": scope, "updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to update session scope: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

// DeleteByShop removes every session of the shop
func (r *MongoSessionRepository) DeleteByShop(ctx context.Context, shop string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"shop": shop})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *MongoSessionRepository) findOne(ctx context.Context, filter bson.M) (*domain.Session, error) {
	var doc entity.MongoSessionDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	token := ""
	if doc.AccessToken != "" {
		token, err = r.encryption.Decrypt(doc.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
	}

	return doc.ToDomain(token), nil
}
