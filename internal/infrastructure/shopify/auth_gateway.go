package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"
)

const maxWebhookBody = 1 << 20

// AuthGateway authenticates admin requests and webhooks and manages stored sessions
type AuthGateway struct {
	client   *Client
	tokens   *SessionTokenVerifier
	sessions ports.SessionRepository
	logger   *logging.Logger
	now      func() time.Time
}

// NewAuthGateway wires the Shopify client and session store into an auth gateway
func NewAuthGateway(client *Client, tokens *SessionTokenVerifier, sessions ports.SessionRepository, loggers *logging.Registry) *AuthGateway {
	return &AuthGateway{
		client:   client,
		tokens:   tokens,
		sessions: sessions,
		logger:   loggers.Auth,
		now:      time.Now,
	}
}

var (
	_ ports.AdminAuthenticator    = (*AuthGateway)(nil)
	_ ports.WebhookAuthenticator  = (*AuthGateway)(nil)
	_ ports.OfflineTokenExchanger = (*AuthGateway)(nil)
)

// AuthenticateAdmin resolves the request's session token to an active online session,
// exchanging it for a fresh online access token when none is stored.
func (g *AuthGateway) AuthenticateAdmin(r *http.Request) (*domain.Session, error) {
	ctx := r.Context()

	raw := sessionTokenFromRequest(r)
	if raw == "" {
		g.logger.Auth(ctx, "", "admin_authentication", false, logging.Fields{"reason": "missing session token"})
		return nil, fmt.Errorf("%w: missing session token", domain.ErrUnauthenticated)
	}

	token, err := g.tokens.Verify(raw)
	if err != nil {
		g.logger.Auth(ctx, "", "admin_authentication", false, logging.Fields{"error": err})
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	id := domain.OnlineSessionID(token.Shop, token.UserID)
	session, err := g.sessions.GetByID(ctx, id)
	if err != nil {
		g.logger.Error(ctx, token.Shop, "Failed to load session", logging.Fields{"sessionId": id, "error": err})
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if session.IsActive(g.now()) {
		return session, nil
	}

	access, err := g.client.ExchangeSessionToken(ctx, token.Shop, raw, OnlineAccessToken)
	if err != nil {
		g.logger.Auth(ctx, token.Shop, "online_token_exchange", false, logging.Fields{"error": err})
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	session = g.onlineSession(id, token, access)
	if err := g.sessions.Save(ctx, session); err != nil {
		g.logger.Error(ctx, token.Shop, "Failed to store online session", logging.Fields{"sessionId": id, "error": err})
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	g.logger.Auth(ctx, token.Shop, "online_token_exchange", true, logging.Fields{"sessionId": id})
	return session, nil
}

func (g *AuthGateway) onlineSession(id string, token *SessionToken, access *AccessToken) *domain.Session {
	session := &domain.Session{
		ID:          id,
		Shop:        token.Shop,
		State:       token.Claims.Sid,
		IsOnline:    true,
		Scope:       access.Scope,
		AccessToken: access.AccessToken,
	}
	if access.ExpiresIn > 0 {
		expires := g.now().Add(time.Duration(access.ExpiresIn) * time.Second)
		session.Expires = &expires
	}
	if u := access.AssociatedUser; u != nil {
		userID := u.ID
		session.UserID = &userID
		session.FirstName = u.FirstName
		session.LastName = u.LastName
		session.Email = u.Email
		session.AccountOwner = u.AccountOwner
		session.Locale = u.Locale
		session.Collaborator = u.Collaborator
		session.EmailVerified = u.EmailVerified
	} else if userID, err := strconv.ParseInt(token.UserID, 10, 64); err == nil {
		session.UserID = &userID
	}
	return session
}

// AuthenticateWebhook verifies the HMAC signature and decodes the delivery.
// The shop's offline session is attached when one exists.
func (g *AuthGateway) AuthenticateWebhook(r *http.Request) (*domain.WebhookRequest, error) {
	ctx := r.Context()
	shop := strings.ToLower(r.Header.Get("X-Shopify-Shop-Domain"))

	r.Body = http.MaxBytesReader(nil, r.Body, maxWebhookBody)
	if !g.client.VerifyWebhookRequest(r) {
		g.logger.Auth(ctx, shop, "webhook_verification", false, logging.Fields{"topic": r.Header.Get("X-Shopify-Topic")})
		return nil, domain.ErrInvalidWebhookSignature
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook body: %w", err)
	}

	topic := domain.NormalizeTopic(r.Header.Get("X-Shopify-Topic"))
	if topic == "" {
		return nil, errors.New("webhook is missing X-Shopify-Topic")
	}
	if !IsValidShopDomain(shop) {
		return nil, fmt.Errorf("webhook has invalid shop domain %q", shop)
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		return nil, errors.New("webhook body is not valid JSON")
	}

	req := &domain.WebhookRequest{
		Topic:      topic,
		Shop:       shop,
		WebhookID:  r.Header.Get("X-Shopify-Webhook-Id"),
		APIVersion: r.Header.Get("X-Shopify-Api-Version"),
		Payload:    json.RawMessage(body),
	}

	session, err := g.sessions.FindOffline(ctx, shop)
	if err != nil {
		g.logger.Warn(ctx, shop, "Failed to load session for webhook", logging.Fields{"topic": string(topic), "error": err})
	}
	req.Session = session

	return req, nil
}

// ExchangeOffline trades the session token for an offline access token and stores it
// as the shop's offline session.
func (g *AuthGateway) ExchangeOffline(ctx context.Context, shop, sessionToken string) (*domain.Session, error) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if !IsValidShopDomain(shop) {
		return nil, fmt.Errorf("invalid shop domain %q", shop)
	}

	access, err := g.client.ExchangeSessionToken(ctx, shop, sessionToken, OfflineAccessToken)
	if err != nil {
		g.logger.Auth(ctx, shop, "offline_token_exchange", false, logging.Fields{"error": err})
		return nil, err
	}

	session := &domain.Session{
		ID:          domain.OfflineSessionID(shop),
		Shop:        shop,
		State:       domain.OfflineSessionState,
		IsOnline:    false,
		Scope:       access.Scope,
		AccessToken: access.AccessToken,
	}
	if err := g.sessions.Save(ctx, session); err != nil {
		g.logger.Error(ctx, shop, "Failed to store offline session", logging.Fields{"error": err})
		return nil, fmt.Errorf("failed to store offline session: %w", err)
	}

	g.logger.Auth(ctx, shop, "offline_token_exchange", true, logging.Fields{"scope": access.Scope})
	return session, nil
}

func sessionTokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("id_token")
}
