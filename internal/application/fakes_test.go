package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging/loggingtest"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"

	"github.com/rs/zerolog"
)

const testShop = "demo.myshopify.com"

func newLoggers() (*logging.Registry, *loggingtest.MemorySink) {
	sink := &loggingtest.MemorySink{}
	return logging.NewRegistry(logging.Options{Console: zerolog.Nop(), Sink: sink, Debug: true}), sink
}

type memConnections struct {
	mu       sync.Mutex
	records  map[string]*domain.Connection
	statuses []domain.ConnectionStatus
	failGet  error
	failSave error
}

func newMemConnections() *memConnections {
	return &memConnections{records: make(map[string]*domain.Connection)}
}

func (m *memConnections) GetByShop(_ context.Context, shop string) (*domain.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	rec, ok := m.records[shop]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memConnections) record(shop string) *domain.Connection {
	rec, ok := m.records[shop]
	if !ok {
		rec = &domain.Connection{Shop: shop, Status: domain.ConnectionStatusDisconnected, CreatedAt: time.Now()}
		m.records[shop] = rec
	}
	return rec
}

func (m *memConnections) UpsertStatus(_ context.Context, shop string, update domain.ConnectionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	rec := m.record(shop)
	rec.Status = update.Status
	rec.ErrorMessage = update.ErrorMessage
	if ids := update.PipelineIDs; ids != nil {
		rec.ConnectionID = domain.StringPtr(ids.ConnectionID)
		rec.SourceID = domain.StringPtr(ids.SourceID)
		rec.DestinationID = domain.StringPtr(ids.DestinationID)
		rec.JobID = domain.StringPtr(ids.JobID)
	}
	rec.UpdatedAt = time.Now()
	m.statuses = append(m.statuses, update.Status)
	return nil
}

func (m *memConnections) RecordSuccess(_ context.Context, shop string, ids domain.PipelineIDs, syncedAt time.Time) (*domain.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return nil, m.failSave
	}
	rec := m.record(shop)
	rec.Status = domain.ConnectionStatusConnected
	rec.ConnectionID = domain.StringPtr(ids.ConnectionID)
	rec.SourceID = domain.StringPtr(ids.SourceID)
	rec.DestinationID = domain.StringPtr(ids.DestinationID)
	rec.JobID = domain.StringPtr(ids.JobID)
	rec.ErrorMessage = nil
	rec.LastSyncAt = &syncedAt
	rec.SyncCount++
	m.statuses = append(m.statuses, domain.ConnectionStatusConnected)
	cp := *rec
	return &cp, nil
}

func (m *memConnections) MarkDisconnected(_ context.Context, shop string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return 0, m.failSave
	}
	rec, ok := m.records[shop]
	if !ok {
		return 0, nil
	}
	rec.Status = domain.ConnectionStatusDisconnected
	return 1, nil
}

func (m *memConnections) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.statuses)
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	failFind error
}

func newMemSessions(sessions ...*domain.Session) *memSessions {
	m := &memSessions{sessions: make(map[string]*domain.Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *memSessions) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) FindOffline(_ context.Context, shop string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	for _, s := range m.sessions {
		if s.Shop == shop && !s.IsOnline {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessions) UpdateScope(_ context.Context, id string, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	s.Scope = scope
	return nil
}

func (m *memSessions) DeleteByShop(_ context.Context, shop string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Shop == shop {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func offlineSession(shop, token string) *domain.Session {
	return &domain.Session{
		ID:          domain.OfflineSessionID(shop),
		Shop:        shop,
		State:       domain.OfflineSessionState,
		IsOnline:    false,
		Scope:       "read_orders",
		AccessToken: token,
	}
}

type fakeIntegration struct {
	mu      sync.Mutex
	respond func(shop, token string) (*ports.IntegrationResponse, error)
	tokens  []string
}

func (f *fakeIntegration) Provision(_ context.Context, shop, token string) (*ports.IntegrationResponse, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	return f.respond(shop, token)
}

func (f *fakeIntegration) Endpoint() string {
	return "https://handler.example/api"
}

func (f *fakeIntegration) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

func respondWith(status int, body map[string]interface{}) func(string, string) (*ports.IntegrationResponse, error) {
	return func(string, string) (*ports.IntegrationResponse, error) {
		resp := &ports.IntegrationResponse{StatusCode: status, Body: body}
		str := func(k string) string {
			v, _ := body[k].(string)
			return v
		}
		resp.Status = str("status")
		resp.ConnectionID = str("connection_id")
		resp.SourceID = str("source_id")
		resp.DestinationID = str("destination_id")
		resp.JobID = str("job_id")
		resp.Message = str("message")
		resp.Error = str("error")
		return resp, nil
	}
}

func pipelineBody() map[string]interface{} {
	return map[string]interface{}{
		"connection_id":  "conn-1",
		"source_id":      "src-1",
		"destination_id": "dst-1",
		"job_id":         "job-1",
	}
}

type memWebhookEvents struct {
	mu         sync.Mutex
	events     map[string]*domain.WebhookEvent
	seq        int
	marks      int
	failCreate error
}

func newMemWebhookEvents() *memWebhookEvents {
	return &memWebhookEvents{events: make(map[string]*domain.WebhookEvent)}
}

func (m *memWebhookEvents) Create(_ context.Context, e *domain.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.seq++
	e.ID = fmt.Sprintf("evt-%d", m.seq)
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memWebhookEvents) MarkProcessed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks++
	e := m.events[id]
	e.Processed = true
	e.Status = domain.WebhookEventProcessed
	e.ProcessedAt = &at
	return nil
}

func (m *memWebhookEvents) MarkFailed(_ context.Context, id string, msg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks++
	e := m.events[id]
	e.Processed = false
	e.Status = domain.WebhookEventFailed
	e.Error = &msg
	e.ProcessedAt = &at
	return nil
}

func (m *memWebhookEvents) completions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks
}

func (m *memWebhookEvents) all() []domain.WebhookEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.WebhookEvent, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out
}
