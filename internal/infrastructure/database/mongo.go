package database

import (
	"context"
	"fmt"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/config"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens a MongoDB client and pings it, retrying with a constant delay.
// Slow and failed commands are reported through logger.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMonitor(commandMonitor(logger, cfg.SlowCommand))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	ping := func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return client.Ping(pingCtx, readpref.Primary())
	}
	if err := pingWithRetry(ctx, cfg.ConnectAttempts, cfg.ConnectDelay, logger, ping); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", cfg.ConnectAttempts, err)
	}

	return client, nil
}

func pingWithRetry(ctx context.Context, attempts int, delay time.Duration, logger zerolog.Logger, ping func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		start := time.Now()
		if err := ping(ctx); err != nil {
			logger.Error().
				Err(err).
				Int("attempt", attempt).
				Int("maxAttempts", attempts).
				Msg("Database connection failed")
			if attempt < attempts {
				logger.Info().Dur("delay", delay).Msg("Retrying database connection")
			}
			return retry.RetryableError(err)
		}

		logger.Info().
			Int("attempt", attempt).
			Dur("duration", time.Since(start)).
			Msg("Successfully connected to database")
		return nil
	})
}

func commandMonitor(logger zerolog.Logger, slow time.Duration) *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			if slow > 0 && e.Duration > slow {
				logger.Warn().
					Str("command", e.CommandName).
					Str("database", e.DatabaseName).
					Dur("duration", e.Duration).
					Msg("Slow database command detected")
			}
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			logger.Error().
				Str("command", e.CommandName).
				Str("database", e.DatabaseName).
				Str("failure", e.Failure).
				Dur("duration", e.Duration).
				Msg("Database command failed")
		},
	}
}

// Disconnect closes the client, logging the outcome
func Disconnect(client *mongo.Client, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Error().Err(err).Msg("Error disconnecting from database")
		return
	}
	logger.Info().Msg("Disconnected from database")
}
