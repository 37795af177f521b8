package ports

import (
	"context"
	"net/http"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
)

// AdminAuthenticator resolves the embedded admin request to an online session
type AdminAuthenticator interface {
	AuthenticateAdmin(r *http.Request) (*domain.Session, error)
}

// WebhookAuthenticator verifies and decodes a Shopify webhook delivery
type WebhookAuthenticator interface {
	AuthenticateWebhook(r *http.Request) (*domain.WebhookRequest, error)
}

// OfflineTokenExchanger trades an App Bridge session token for a stored offline session
type OfflineTokenExchanger interface {
	ExchangeOffline(ctx context.Context, shop, sessionToken string) (*domain.Session, error)
}
