package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"
)

type scopesUpdatePayload struct {
	Previous json.RawMessage `json:"previous"`
	Current  json.RawMessage `json:"current"`
}

// AppScopesUpdateHandler stores the scopes granted after a merchant approves a scope change
type AppScopesUpdateHandler struct {
	sessions ports.SessionRepository
	loggers  *logging.Registry
}

// NewAppScopesUpdateHandler creates a new scopes update webhook handler
func NewAppScopesUpdateHandler(sessions ports.SessionRepository, loggers *logging.Registry) *AppScopesUpdateHandler {
	return &AppScopesUpdateHandler{
		sessions: sessions,
		loggers:  loggers,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppScopesUpdateHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic == domain.TopicAppScopesUpdate
}

// Handle writes payload.current to the shop's session. Without a session nothing changes.
func (h *AppScopesUpdateHandler) Handle(ctx context.Context, req *domain.WebhookRequest) error {
	var payload scopesUpdatePayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse scopes update webhook payload: %w", err)
	}

	current, ok := scopeList(payload.Current)
	if !ok {
		h.loggers.Webhook.Warn(ctx, req.Shop, "Scopes update webhook without current scopes", nil)
		return nil
	}
	if req.Session == nil {
		h.loggers.Webhook.Warn(ctx, req.Shop, "Scopes update received but no session found", logging.Fields{"current": current})
		return nil
	}

	if err := h.sessions.UpdateScope(ctx, req.Session.ID, current); err != nil {
		return fmt.Errorf("failed to update session scope: %w", err)
	}
	h.loggers.Database.Database(ctx, req.Shop, "update", "sessions", logging.Fields{"sessionId": req.Session.ID})

	previous, _ := scopeList(payload.Previous)
	h.loggers.App.Metric(ctx, req.Shop, "scope_updates", 1, logging.Fields{
		"previous": previous,
		"current":  current,
	})
	h.loggers.Webhook.Info(ctx, req.Shop, "Session scopes updated", logging.Fields{"scope": current})

	return nil
}

// scopeList accepts a comma separated string or an array of strings
func scopeList(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ","), true
	}
	return "", false
}
