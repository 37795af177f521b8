package ports

import (
	"context"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
)

// ConnectionRepository persists the per-shop integration state.
// Lookups return (nil, nil) when the shop has no record.
type ConnectionRepository interface {
	GetByShop(ctx context.Context, shop string) (*domain.Connection, error)
	// UpsertStatus creates the shop's record if needed and applies the update
	UpsertStatus(ctx context.Context, shop string, update domain.ConnectionUpdate) error
	// RecordSuccess marks the shop connected, stores the identifiers and increments the sync count atomically
	RecordSuccess(ctx context.Context, shop string, ids domain.PipelineIDs, syncedAt time.Time) (*domain.Connection, error)
	// MarkDisconnected sets every record of the shop to disconnected without creating one
	MarkDisconnected(ctx context.Context, shop string) (int64, error)
}

// SessionRepository persists Shopify sessions
type SessionRepository interface {
	Save(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	FindOffline(ctx context.Context, shop string) (*domain.Session, error)
	UpdateScope(ctx context.Context, id string, scope string) error
	DeleteByShop(ctx context.Context, shop string) (int64, error)
}

// WebhookEventRepository keeps the audit trail of webhook deliveries
type WebhookEventRepository interface {
	Create(ctx context.Context, event *domain.WebhookEvent) error
	MarkProcessed(ctx context.Context, id string, processedAt time.Time) error
	MarkFailed(ctx context.Context, id string, message string, failedAt time.Time) error
}

// LogSink receives log and metric records for durable storage
type LogSink interface {
	AppendLog(ctx context.Context, record *domain.LogRecord) error
	AppendMetric(ctx context.Context, record *domain.MetricRecord) error
}

// WebhookDeduplicator claims webhook ids so redeliveries can be skipped
type WebhookDeduplicator interface {
	// Claim returns true when the id was already claimed
	Claim(ctx context.Context, webhookID, shop string, topic domain.WebhookTopic) (bool, error)
}

// EncryptionService encrypts secrets at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
