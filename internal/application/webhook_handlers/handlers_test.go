package webhook_handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/application/webhook_handlers"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging/loggingtest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shop = "demo.myshopify.com"

type sessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Session
	deleteErr error
}

func newSessionStore(sessions ...*domain.Session) *sessionStore {
	s := &sessionStore{sessions: make(map[string]*domain.Session)}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
	}
	return s
}

func (s *sessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *sessionStore) GetByID(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id], nil
}

func (s *sessionStore) FindOffline(_ context.Context, shop string) (*domain.Session, error) {
	return s.GetByID(context.Background(), domain.OfflineSessionID(shop))
}

func (s *sessionStore) UpdateScope(_ context.Context, id string, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	sess.Scope = scope
	return nil
}

func (s *sessionStore) DeleteByShop(_ context.Context, shop string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	var n int64
	for id, sess := range s.sessions {
		if sess.Shop == shop {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

type connectionStore struct {
	records map[string]*domain.Connection
}

func (c *connectionStore) GetByShop(_ context.Context, shop string) (*domain.Connection, error) {
	return c.records[shop], nil
}

func (c *connectionStore) UpsertStatus(_ context.Context, shop string, update domain.ConnectionUpdate) error {
	return errors.New("unexpected upsert")
}

func (c *connectionStore) RecordSuccess(_ context.Context, shop string, ids domain.PipelineIDs, at time.Time) (*domain.Connection, error) {
	return nil, errors.New("unexpected record success")
}

func (c *connectionStore) MarkDisconnected(_ context.Context, shop string) (int64, error) {
	rec, ok := c.records[shop]
	if !ok {
		return 0, nil
	}
	rec.Status = domain.ConnectionStatusDisconnected
	return 1, nil
}

func newLoggers() (*logging.Registry, *loggingtest.MemorySink) {
	sink := &loggingtest.MemorySink{}
	return logging.NewRegistry(logging.Options{Console: zerolog.Nop(), Sink: sink}), sink
}

func session(id string, online bool) *domain.Session {
	return &domain.Session{ID: id, Shop: shop, IsOnline: online, AccessToken: "tok", Scope: "read_orders"}
}

func TestAppUninstalledHandler_RemovesSessionsAndDisconnects(t *testing.T) {
	sessions := newSessionStore(session(domain.OfflineSessionID(shop), false), session(shop+"_42", true), &domain.Session{ID: "other_offline", Shop: "other.myshopify.com"})
	conns := &connectionStore{records: map[string]*domain.Connection{shop: {Shop: shop, Status: domain.ConnectionStatusConnected}}}
	loggers, sink := newLoggers()
	h := webhook_handlers.NewAppUninstalledHandler(sessions, conns, loggers)

	assert.True(t, h.CanHandle(domain.TopicAppUninstalled))
	assert.False(t, h.CanHandle(domain.TopicAppScopesUpdate))

	err := h.Handle(context.Background(), &domain.WebhookRequest{Topic: domain.TopicAppUninstalled, Shop: shop, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	loggers.Wait()

	assert.Len(t, sessions.sessions, 1)
	assert.Equal(t, domain.ConnectionStatusDisconnected, conns.records[shop].Status)
	assert.Len(t, sink.MetricsNamed("app_uninstalls"), 1)
}

func TestAppUninstalledHandler_NoConnectionRecordIsNotCreated(t *testing.T) {
	sessions := newSessionStore()
	conns := &connectionStore{records: map[string]*domain.Connection{}}
	loggers, _ := newLoggers()
	h := webhook_handlers.NewAppUninstalledHandler(sessions, conns, loggers)

	err := h.Handle(context.Background(), &domain.WebhookRequest{Topic: domain.TopicAppUninstalled, Shop: shop, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.Empty(t, conns.records)
}

func TestAppUninstalledHandler_RequiresShopHeader(t *testing.T) {
	sessions := newSessionStore(session(domain.OfflineSessionID(shop), false))
	conns := &connectionStore{records: map[string]*domain.Connection{}}
	loggers, _ := newLoggers()
	h := webhook_handlers.NewAppUninstalledHandler(sessions, conns, loggers)

	// the payload domain is not trusted in place of the verified shop
	err := h.Handle(context.Background(), &domain.WebhookRequest{
		Topic:   domain.TopicAppUninstalled,
		Payload: json.RawMessage(`{"myshopify_domain":"demo.myshopify.com","domain":"shop.example.com"}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no shop domain")
	assert.Len(t, sessions.sessions, 1)
}

func TestAppUninstalledHandler_StoreErrorIsReturned(t *testing.T) {
	sessions := newSessionStore()
	sessions.deleteErr = errors.New("mongo down")
	loggers, _ := newLoggers()
	h := webhook_handlers.NewAppUninstalledHandler(sessions, &connectionStore{}, loggers)

	err := h.Handle(context.Background(), &domain.WebhookRequest{Topic: domain.TopicAppUninstalled, Shop: shop})
	assert.Error(t, err)
}

func TestAppScopesUpdateHandler_UpdatesSessionScope(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"array", `{"previous":["read_orders"],"current":["read_orders","read_products"]}`, "read_orders,read_products"},
		{"string", `{"previous":"read_orders","current":"read_orders,read_customers"}`, "read_orders,read_customers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offline := session(domain.OfflineSessionID(shop), false)
			sessions := newSessionStore(offline)
			loggers, sink := newLoggers()
			h := webhook_handlers.NewAppScopesUpdateHandler(sessions, loggers)

			err := h.Handle(context.Background(), &domain.WebhookRequest{
				Topic:   domain.TopicAppScopesUpdate,
				Shop:    shop,
				Session: offline,
				Payload: json.RawMessage(tt.payload),
			})
			require.NoError(t, err)
			loggers.Wait()

			assert.Equal(t, tt.want, sessions.sessions[offline.ID].Scope)
			metrics := sink.MetricsNamed("scope_updates")
			require.Len(t, metrics, 1)
			assert.Equal(t, tt.want, metrics[0].Metadata["current"])
		})
	}
}

func TestAppScopesUpdateHandler_NoSessionIsNoop(t *testing.T) {
	sessions := newSessionStore()
	loggers, sink := newLoggers()
	h := webhook_handlers.NewAppScopesUpdateHandler(sessions, loggers)

	err := h.Handle(context.Background(), &domain.WebhookRequest{
		Topic:   domain.TopicAppScopesUpdate,
		Shop:    shop,
		Payload: json.RawMessage(`{"current":["read_orders"]}`),
	})
	require.NoError(t, err)
	loggers.Wait()

	assert.Empty(t, sink.MetricsNamed("scope_updates"))
	assert.True(t, sink.HasMessage("Scopes update received but no session found"))
}

func TestAppScopesUpdateHandler_MissingCurrentIsNoop(t *testing.T) {
	offline := session(domain.OfflineSessionID(shop), false)
	sessions := newSessionStore(offline)
	loggers, _ := newLoggers()
	h := webhook_handlers.NewAppScopesUpdateHandler(sessions, loggers)

	err := h.Handle(context.Background(), &domain.WebhookRequest{
		Topic:   domain.TopicAppScopesUpdate,
		Shop:    shop,
		Session: offline,
		Payload: json.RawMessage(`{"previous":["read_orders"]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "read_orders", sessions.sessions[offline.ID].Scope)
}

func TestAppScopesUpdateHandler_MalformedPayload(t *testing.T) {
	offline := session(domain.OfflineSessionID(shop), false)
	loggers, _ := newLoggers()
	h := webhook_handlers.NewAppScopesUpdateHandler(newSessionStore(offline), loggers)

	err := h.Handle(context.Background(), &domain.WebhookRequest{
		Topic:   domain.TopicAppScopesUpdate,
		Shop:    shop,
		Session: offline,
		Payload: json.RawMessage(`not json`),
	})
	assert.Error(t, err)
}
