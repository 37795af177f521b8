package repository

import (
	"context"
	"fmt"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/repository/entity"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLogRepository stores log lines and metrics. It is the durable sink of the logger.
type MongoLogRepository struct {
	logs    *mongo.Collection
	metrics *mongo.Collection
}

// NewMongoLogRepository creates a new MongoDB log sink
func NewMongoLogRepository(db *mongo.Database) ports.LogSink {
	return &MongoLogRepository{
		logs:    db.Collection(AppLogsCollection),
		metrics: db.Collection(AppMetricsCollection),
	}
}

func (r *MongoLogRepository) AppendLog(ctx context.Context, record *domain.LogRecord) error {
	if _, err := r.logs.InsertOne(ctx, entity.MongoLogDocFromDomain(record)); err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}
	return nil
}

func (r *MongoLogRepository) AppendMetric(ctx context.Context, record *domain.MetricRecord) error {
	if _, err := r.metrics.InsertOne(ctx, entity.MongoMetricDocFromDomain(record)); err != nil {
		return fmt.Errorf("failed to insert metric: %w", err)
	}
	return nil
}
