package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
)

const (
	testAPIKey    = "test-api-key"
	testAPISecret = "test-api-secret"
	testShop      = "demo.myshopify.com"
)

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	failGet  error
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: map[string]*domain.Session{}}
}

func (s *sessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *sessionStore) GetByID(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	return s.sessions[id], nil
}

func (s *sessionStore) FindOffline(ctx context.Context, shop string) (*domain.Session, error) {
	return s.GetByID(ctx, domain.OfflineSessionID(shop))
}

func (s *sessionStore) UpdateScope(context.Context, string, string) error { return nil }

func (s *sessionStore) DeleteByShop(context.Context, string) (int64, error) { return 0, nil }

func signSessionToken(t *testing.T, secret string, claims SessionTokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() SessionTokenClaims {
	now := time.Now()
	return SessionTokenClaims{
		Dest: "https://" + testShop,
		Sid:  "sid-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + testShop + "/admin",
			Subject:   "42",
			Audience:  jwt.ClaimStrings{testAPIKey},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
}

type tokenServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []map[string]string
	status   int
	body     string
}

func newTokenServer(t *testing.T, status int, body string) *tokenServer {
	ts := &tokenServer{status: status, body: body}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		ts.mu.Lock()
		ts.requests = append(ts.requests, req)
		ts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ts.status)
		_, _ = w.Write([]byte(ts.body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) lastRequest() map[string]string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.requests) == 0 {
		return nil
	}
	return ts.requests[len(ts.requests)-1]
}

func newGateway(ts *tokenServer, store *sessionStore) *AuthGateway {
	client := NewClient(testAPIKey, testAPISecret, WithTokenURL(func(string) string { return ts.URL }))
	return NewAuthGateway(client, NewSessionTokenVerifier(testAPIKey, testAPISecret), store, logging.NewNop())
}

func TestSessionTokenVerifier(t *testing.T) {
	v := NewSessionTokenVerifier(testAPIKey, testAPISecret)

	t.Run("valid token", func(t *testing.T) {
		tok, err := v.Verify(signSessionToken(t, testAPISecret, validClaims()))
		require.NoError(t, err)
		assert.Equal(t, testShop, tok.Shop)
		assert.Equal(t, "42", tok.UserID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Verify(signSessionToken(t, "other-secret", validClaims()))
		assert.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := validClaims()
		claims.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := v.Verify(signSessionToken(t, testAPISecret, claims))
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.Verify(signSessionToken(t, testAPISecret, claims))
		assert.Error(t, err)
	})

	t.Run("foreign destination", func(t *testing.T) {
		claims := validClaims()
		claims.Dest = "https://evil.example.com"
		_, err := v.Verify(signSessionToken(t, testAPISecret, claims))
		assert.Error(t, err)
	})
}

func TestIsValidShopDomain(t *testing.T) {
	assert.True(t, IsValidShopDomain("demo-store.myshopify.com"))
	assert.True(t, IsValidShopDomain("Demo.MyShopify.com"))
	assert.False(t, IsValidShopDomain(".myshopify.com"))
	assert.False(t, IsValidShopDomain("demo.example.com"))
	assert.False(t, IsValidShopDomain("evil.com/.myshopify.com"))
}

func TestAuthenticateAdmin_ExchangesOnlineToken(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"online-token","scope":"read_orders","expires_in":86399,"associated_user":{"id":42,"email":"owner@example.com","account_owner":true}}`)
	store := newSessionStore()
	gw := newGateway(ts, store)

	r := httptest.NewRequest(http.MethodGet, "/app", nil)
	r.Header.Set("Authorization", "Bearer "+signSessionToken(t, testAPISecret, validClaims()))

	session, err := gw.AuthenticateAdmin(r)
	require.NoError(t, err)
	assert.Equal(t, testShop+"_42", session.ID)
	assert.True(t, session.IsOnline)
	assert.Equal(t, "online-token", session.AccessToken)
	require.NotNil(t, session.UserID)
	assert.Equal(t, int64(42), *session.UserID)
	require.NotNil(t, session.Expires)

	assert.Equal(t, string(OnlineAccessToken), ts.lastRequest()["requested_token_type"])
	assert.Equal(t, testAPIKey, ts.lastRequest()["client_id"])

	stored, _ := store.GetByID(context.Background(), session.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "owner@example.com", stored.Email)
}

func TestAuthenticateAdmin_ReusesActiveSession(t *testing.T) {
	ts := newTokenServer(t, http.StatusInternalServerError, `{}`)
	store := newSessionStore()
	expires := time.Now().Add(time.Hour)
	_ = store.Save(context.Background(), &domain.Session{
		ID: testShop + "_42", Shop: testShop, IsOnline: true, AccessToken: "cached", Expires: &expires,
	})
	gw := newGateway(ts, store)

	r := httptest.NewRequest(http.MethodGet, "/app?id_token="+signSessionToken(t, testAPISecret, validClaims()), nil)

	session, err := gw.AuthenticateAdmin(r)
	require.NoError(t, err)
	assert.Equal(t, "cached", session.AccessToken)
	assert.Nil(t, ts.lastRequest())
}

func TestAuthenticateAdmin_Failures(t *testing.T) {
	ts := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_subject_token"}`)
	gw := newGateway(ts, newSessionStore())

	t.Run("missing token", func(t *testing.T) {
		_, err := gw.AuthenticateAdmin(httptest.NewRequest(http.MethodGet, "/app", nil))
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("bad signature", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/app", nil)
		r.Header.Set("Authorization", "Bearer "+signSessionToken(t, "nope", validClaims()))
		_, err := gw.AuthenticateAdmin(r)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("exchange rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/app", nil)
		r.Header.Set("Authorization", "Bearer "+signSessionToken(t, testAPISecret, validClaims()))
		_, err := gw.AuthenticateAdmin(r)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestExchangeOffline_StoresOfflineSession(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"shpat_offline","scope":"read_orders,read_products"}`)
	store := newSessionStore()
	gw := newGateway(ts, store)

	session, err := gw.ExchangeOffline(context.Background(), testShop, "session-jwt")
	require.NoError(t, err)
	assert.Equal(t, testShop+"_offline", session.ID)
	assert.Equal(t, domain.OfflineSessionState, session.State)
	assert.False(t, session.IsOnline)

	req := ts.lastRequest()
	assert.Equal(t, string(OfflineAccessToken), req["requested_token_type"])
	assert.Equal(t, "session-jwt", req["subject_token"])
	assert.Equal(t, tokenExchangeGrantType, req["grant_type"])

	stored, _ := store.FindOffline(context.Background(), testShop)
	require.NotNil(t, stored)
	assert.Equal(t, "shpat_offline", stored.AccessToken)
	assert.Equal(t, []string{"read_orders", "read_products"}, stored.Scopes())
}

func TestExchangeOffline_Errors(t *testing.T) {
	ts := newTokenServer(t, http.StatusUnauthorized, `{"error":"invalid_client"}`)
	store := newSessionStore()
	gw := newGateway(ts, store)

	_, err := gw.ExchangeOffline(context.Background(), "attacker.example.com", "jwt")
	assert.Error(t, err)
	assert.Nil(t, ts.lastRequest())

	_, err = gw.ExchangeOffline(context.Background(), testShop, "jwt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Empty(t, store.sessions)
}

func signedWebhook(t *testing.T, secret, topic, body string) *http.Request {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	r := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(body))
	r.Header.Set("X-Shopify-Hmac-Sha256", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	r.Header.Set("X-Shopify-Topic", topic)
	r.Header.Set("X-Shopify-Shop-Domain", testShop)
	r.Header.Set("X-Shopify-Webhook-Id", "wh-1")
	r.Header.Set("X-Shopify-Api-Version", "2025-01")
	return r
}

func TestAuthenticateWebhook(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{}`)
	store := newSessionStore()
	_ = store.Save(context.Background(), &domain.Session{ID: testShop + "_offline", Shop: testShop, AccessToken: "tok"})
	gw := newGateway(ts, store)

	t.Run("valid delivery", func(t *testing.T) {
		body := `{"id":1,"current":["read_orders"]}`
		req, err := gw.AuthenticateWebhook(signedWebhook(t, testAPISecret, "app/scopes_update", body))
		require.NoError(t, err)
		assert.Equal(t, domain.TopicAppScopesUpdate, req.Topic)
		assert.Equal(t, testShop, req.Shop)
		assert.Equal(t, "wh-1", req.WebhookID)
		assert.Equal(t, "2025-01", req.APIVersion)
		assert.JSONEq(t, body, string(req.Payload))
		require.NotNil(t, req.Session)
		assert.Equal(t, "tok", req.Session.AccessToken)
	})

	t.Run("bad signature", func(t *testing.T) {
		_, err := gw.AuthenticateWebhook(signedWebhook(t, "wrong", "app/uninstalled", `{}`))
		assert.True(t, errors.Is(err, domain.ErrInvalidWebhookSignature))
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := gw.AuthenticateWebhook(signedWebhook(t, testAPISecret, "app/uninstalled", `not json`))
		assert.Error(t, err)
	})

	t.Run("session lookup failure still authenticates", func(t *testing.T) {
		store.failGet = errors.New("db down")
		defer func() { store.failGet = nil }()
		req, err := gw.AuthenticateWebhook(signedWebhook(t, testAPISecret, "app/uninstalled", `{}`))
		require.NoError(t, err)
		assert.Nil(t, req.Session)
	})
}
