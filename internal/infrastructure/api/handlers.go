package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/application"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/shopify"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"
)

const retryInvalidSessionHeader = "X-Shopify-Retry-Invalid-Session-Request"

// ConnectionController drives the per-shop connection lifecycle
type ConnectionController interface {
	CheckStatus(ctx context.Context, shop, onlineToken string) (*application.StatusResult, error)
	Connect(ctx context.Context, shop, action string) *application.ConnectResult
}

// WebhookProcessor records and dispatches an authenticated webhook
type WebhookProcessor interface {
	Process(ctx context.Context, req *domain.WebhookRequest) error
}

// Handlers serves the app, webhook and token exchange routes
type Handlers struct {
	admin       ports.AdminAuthenticator
	webhookAuth ports.WebhookAuthenticator
	exchanger   ports.OfflineTokenExchanger
	connections ConnectionController
	webhooks    WebhookProcessor
	loggers     *logging.Registry
	apiKey      string
}

// HandlersDeps groups the collaborators of Handlers
type HandlersDeps struct {
	Admin       ports.AdminAuthenticator
	WebhookAuth ports.WebhookAuthenticator
	Exchanger   ports.OfflineTokenExchanger
	Connections ConnectionController
	Webhooks    WebhookProcessor
	Loggers     *logging.Registry
	APIKey      string
}

func NewHandlers(deps HandlersDeps) *Handlers {
	return &Handlers{
		admin:       deps.Admin,
		webhookAuth: deps.WebhookAuth,
		exchanger:   deps.Exchanger,
		connections: deps.Connections,
		webhooks:    deps.Webhooks,
		loggers:     deps.Loggers,
		apiKey:      deps.APIKey,
	}
}

type loaderResponse struct {
	Shop             string                  `json:"shop"`
	ConnectionStatus domain.ConnectionStatus `json:"connectionStatus"`
	ConnectionData   map[string]interface{}  `json:"connectionData"`
	APIKey           string                  `json:"apiKey"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AppLoader reports the shop's connection status using the online session
func (h *Handlers) AppLoader(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	session, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	shop := session.Shop

	h.loggers.App.Info(ctx, shop, "App index loaded", nil)

	status, err := h.connections.CheckStatus(ctx, shop, session.AccessToken)
	if err != nil {
		h.loggers.App.Error(ctx, shop, "Failed to load app index", logging.Fields{"error": err})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load connection status"})
		return
	}

	h.loggers.App.Metric(ctx, shop, "page_loads", 1, logging.Fields{"duration": time.Since(start)})

	writeJSON(w, http.StatusOK, loaderResponse{
		Shop:             shop,
		ConnectionStatus: status.Status,
		ConnectionData:   status.ConnectionData,
		APIKey:           h.apiKey,
	})
}

// AppAction handles the connect and reconnect form submissions
func (h *Handlers) AppAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, application.ConnectResult{Message: "Invalid form submission", Error: err.Error()})
		return
	}
	action := r.PostFormValue("action")

	h.loggers.App.Info(ctx, session.Shop, "Action triggered", logging.Fields{"action": action})

	writeJSON(w, http.StatusOK, h.connections.Connect(ctx, session.Shop, action))
}

func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	session, err := h.admin.AuthenticateAdmin(r)
	if err == nil && session != nil {
		return session, true
	}
	if err == nil {
		err = domain.ErrUnauthenticated
	}

	h.loggers.Auth.Warn(r.Context(), "", "Admin request rejected", logging.Fields{"path": r.URL.Path, "error": err})
	if errors.Is(err, domain.ErrUnauthenticated) {
		w.Header().Set(retryInvalidSessionHeader, "1")
	}
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	return nil, false
}

// Webhooks always answers 200 so Shopify does not retry deliveries
func (h *Handlers) Webhooks(w http.ResponseWriter, r *http.Request) {
	h.processWebhook(r)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handlers) processWebhook(r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	shop := r.Header.Get("X-Shopify-Shop-Domain")
	topic := domain.NormalizeTopic(r.Header.Get("X-Shopify-Topic"))

	defer func() {
		if rec := recover(); rec != nil {
			h.loggers.Webhook.Error(ctx, shop, "Webhook processing failed", logging.Fields{
				"topic":    string(topic),
				"error":    fmt.Sprint(rec),
				"duration": time.Since(start),
			})
		}
	}()

	req, err := h.webhookAuth.AuthenticateWebhook(r)
	if err != nil {
		h.loggers.Webhook.Error(ctx, shop, "Webhook processing failed", logging.Fields{
			"topic":    string(topic),
			"error":    err,
			"duration": time.Since(start),
		})
		return
	}

	if err := h.webhooks.Process(ctx, req); err != nil {
		h.loggers.Webhook.Error(ctx, req.Shop, "Webhook processing failed", logging.Fields{
			"topic":    string(req.Topic),
			"error":    err,
			"duration": time.Since(start),
		})
	}
}

type exchangeTokenRequest struct {
	SessionToken string `json:"sessionToken"`
	Shop         string `json:"shop"`
}

type exchangeTokenResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExchangeToken stores an offline session for the shop from an App Bridge session token
func (h *Handlers) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body exchangeTokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, exchangeTokenResponse{Message: "Invalid request body"})
		return
	}
	body.Shop = strings.ToLower(strings.TrimSpace(body.Shop))
	body.SessionToken = strings.TrimSpace(body.SessionToken)

	if body.SessionToken == "" || body.Shop == "" {
		writeJSON(w, http.StatusBadRequest, exchangeTokenResponse{Message: "Missing sessionToken or shop"})
		return
	}
	if !shopify.IsValidShopDomain(body.Shop) {
		writeJSON(w, http.StatusBadRequest, exchangeTokenResponse{Message: "Invalid shop domain"})
		return
	}

	if _, err := h.exchanger.ExchangeOffline(ctx, body.Shop, body.SessionToken); err != nil {
		h.loggers.Auth.Error(ctx, body.Shop, "Token exchange failed", logging.Fields{"error": err})
		writeJSON(w, http.StatusInternalServerError, exchangeTokenResponse{Message: "Token exchange failed", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, exchangeTokenResponse{OK: true})
}
