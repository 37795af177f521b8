package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// WebhookTopic is a Shopify webhook topic in upper snake case, e.g. APP_UNINSTALLED
type WebhookTopic string

const (
	TopicAppUninstalled  WebhookTopic = "APP_UNINSTALLED"
	TopicAppScopesUpdate WebhookTopic = "APP_SCOPES_UPDATE"
)

// NormalizeTopic converts a header topic such as "app/scopes_update" to APP_SCOPES_UPDATE
func NormalizeTopic(raw string) WebhookTopic {
	t := strings.ToUpper(strings.TrimSpace(raw))
	return WebhookTopic(strings.ReplaceAll(t, "/", "_"))
}

// WebhookRequest is an authenticated webhook delivery
type WebhookRequest struct {
	Topic      WebhookTopic
	Shop       string
	WebhookID  string
	APIVersion string
	Session    *Session
	Payload    json.RawMessage
}

// WebhookEventStatus tracks the processing outcome of a recorded webhook
type WebhookEventStatus string

const (
	WebhookEventReceived  WebhookEventStatus = "received"
	WebhookEventProcessed WebhookEventStatus = "processed"
	WebhookEventFailed    WebhookEventStatus = "failed"
)

// WebhookEvent is the audit record of one webhook delivery
type WebhookEvent struct {
	ID          string             `json:"id"`
	Shop        string             `json:"shop"`
	Topic       WebhookTopic       `json:"topic"`
	WebhookID   string             `json:"webhookId,omitempty"`
	Payload     json.RawMessage    `json:"payload"`
	Status      WebhookEventStatus `json:"status"`
	Processed   bool               `json:"processed"`
	Error       *string            `json:"error,omitempty"`
	ReceivedAt  time.Time          `json:"receivedAt"`
	ProcessedAt *time.Time         `json:"processedAt,omitempty"`
}
