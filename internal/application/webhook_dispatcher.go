package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
)

// WebhookHandler processes the webhook topics it claims
type WebhookHandler interface {
	CanHandle(topic domain.WebhookTopic) bool
	Handle(ctx context.Context, req *domain.WebhookRequest) error
}

// WebhookDispatcher routes a webhook to the first registered handler that accepts its topic
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers []WebhookHandler
}

// NewWebhookDispatcher creates an empty dispatcher
func NewWebhookDispatcher() *WebhookDispatcher {
	return &WebhookDispatcher{}
}

// RegisterHandler adds a handler; earlier registrations win
func (d *WebhookDispatcher) RegisterHandler(h WebhookHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Dispatch runs the matching handler. handled is false when no handler accepts the topic.
// A handler panic is returned as an error.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, req *domain.WebhookRequest) (handled bool, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.handlers {
		if h.CanHandle(req.Topic) {
			return true, safeHandle(ctx, h, req)
		}
	}
	return false, nil
}

func safeHandle(ctx context.Context, h WebhookHandler, req *domain.WebhookRequest) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("webhook handler panicked: %v", rec)
		}
	}()
	return h.Handle(ctx, req)
}
