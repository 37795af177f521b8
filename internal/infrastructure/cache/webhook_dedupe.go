package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const webhookKeyPrefix = "webhook:"

// NewRedisClient parses url and verifies the server answers
func NewRedisClient(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to redis")
	return client, nil
}

// RedisWebhookDeduplicator claims webhook ids with SET NX so each delivery is processed once
type RedisWebhookDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWebhookDeduplicator keeps claims for ttl
func NewRedisWebhookDeduplicator(client *redis.Client, ttl time.Duration) ports.WebhookDeduplicator {
	return &RedisWebhookDeduplicator{client: client, ttl: ttl}
}

func (d *RedisWebhookDeduplicator) Claim(ctx context.Context, webhookID, shop string, topic domain.WebhookTopic) (bool, error) {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return false, nil
	}

	value := fmt.Sprintf("%s|%s|%s", shop, topic, time.Now().UTC().Format(time.RFC3339))
	claimed, err := d.client.SetNX(ctx, webhookKeyPrefix+webhookID, value, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook %s: %w", webhookID, err)
	}
	return !claimed, nil
}
