package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// TokenType is the requested_token_type of a token exchange
type TokenType string

const (
	OfflineAccessToken TokenType = "urn:shopify:params:oauth:token-type:offline-access-token"
	OnlineAccessToken  TokenType = "urn:shopify:params:oauth:token-type:online-access-token"

	tokenExchangeGrantType = "urn:ietf:params:oauth:grant-type:token-exchange"
	idTokenType            = "urn:ietf:params:oauth:token-type:id_token"
)

// AssociatedUser is the staff member an online token belongs to
type AssociatedUser struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	AccountOwner  bool   `json:"account_owner"`
	Locale        string `json:"locale"`
	Collaborator  bool   `json:"collaborator"`
	EmailVerified bool   `json:"email_verified"`
}

// AccessToken is the token endpoint response
type AccessToken struct {
	AccessToken    string          `json:"access_token"`
	Scope          string          `json:"scope"`
	ExpiresIn      int64           `json:"expires_in,omitempty"`
	AssociatedUser *AssociatedUser `json:"associated_user,omitempty"`
}

// Client performs the app-level Shopify calls: token exchange and webhook verification
type Client struct {
	apiKey     string
	apiSecret  string
	app        goshopify.App
	httpClient *http.Client
	tokenURL   func(shop string) string
}

// ClientOption customises a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for token requests
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenURL overrides how the token endpoint is derived from the shop
func WithTokenURL(fn func(shop string) string) ClientOption {
	return func(c *Client) { c.tokenURL = fn }
}

// NewClient creates a new Shopify app client
func NewClient(apiKey, apiSecret string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokenURL: func(shop string) string {
			return fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIKey returns the app's client id
func (c *Client) APIKey() string {
	return c.apiKey
}

// ExchangeSessionToken trades an App Bridge session token for an access token
func (c *Client) ExchangeSessionToken(ctx context.Context, shop, sessionToken string, requested TokenType) (*AccessToken, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":            c.apiKey,
		"client_secret":        c.apiSecret,
		"grant_type":           tokenExchangeGrantType,
		"subject_token":        sessionToken,
		"subject_token_type":   idTokenType,
		"requested_token_type": string(requested),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(shop), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var token AccessToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("failed to exchange token: empty access token")
	}

	return &token, nil
}

// VerifyWebhookRequest checks X-Shopify-Hmac-Sha256 against the body. The body stays readable.
func (c *Client) VerifyWebhookRequest(r *http.Request) bool {
	if c.apiSecret == "" {
		return false
	}
	return c.app.VerifyWebhookRequest(r)
}
