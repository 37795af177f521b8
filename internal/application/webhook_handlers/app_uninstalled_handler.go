package webhook_handlers

import (
	"context"
	"fmt"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	sessions    ports.SessionRepository
	connections ports.ConnectionRepository
	loggers     *logging.Registry
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(
	sessions ports.SessionRepository,
	connections ports.ConnectionRepository,
	loggers *logging.Registry,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		sessions:    sessions,
		connections: connections,
		loggers:     loggers,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle removes the shop's sessions and marks its pipeline disconnected.
// A shop without a connection record is left without one.
func (h *AppUninstalledHandler) Handle(ctx context.Context, req *domain.WebhookRequest) error {
	shopDomain := req.Shop
	if shopDomain == "" {
		return fmt.Errorf("app uninstalled webhook has no shop domain")
	}

	h.loggers.Webhook.Info(ctx, shopDomain, "Processing app uninstalled webhook event", logging.Fields{
		"hasSession": req.Session != nil,
	})

	deleted, err := h.sessions.DeleteByShop(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	h.loggers.Database.Database(ctx, shopDomain, "deleteMany", "sessions", logging.Fields{"count": deleted})

	updated, err := h.connections.MarkDisconnected(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to disconnect pipeline: %w", err)
	}
	h.loggers.Database.Database(ctx, shopDomain, "updateMany", "connections", logging.Fields{
		"count":  updated,
		"status": string(domain.ConnectionStatusDisconnected),
	})

	h.loggers.App.Metric(ctx, shopDomain, "app_uninstalls", 1, nil)
	h.loggers.Webhook.Info(ctx, shopDomain, "App uninstalled - cleanup completed", logging.Fields{
		"sessionsDeleted":    deleted,
		"connectionsUpdated": updated,
	})

	return nil
}
