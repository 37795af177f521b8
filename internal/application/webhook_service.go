package application

import (
	"context"
	"fmt"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"
)

// WebhookService records every authenticated webhook, dispatches it and stores the outcome.
// Processing errors are kept on the event; only a failure to record the event is returned.
type WebhookService struct {
	events     ports.WebhookEventRepository
	dispatcher *WebhookDispatcher
	dedupe     ports.WebhookDeduplicator
	loggers    *logging.Registry
	now        func() time.Time
}

// NewWebhookService creates a webhook service. dedupe may be nil.
func NewWebhookService(
	events ports.WebhookEventRepository,
	dispatcher *WebhookDispatcher,
	dedupe ports.WebhookDeduplicator,
	loggers *logging.Registry,
) *WebhookService {
	return &WebhookService{
		events:     events,
		dispatcher: dispatcher,
		dedupe:     dedupe,
		loggers:    loggers,
		now:        time.Now,
	}
}

// Process handles one delivery
func (s *WebhookService) Process(ctx context.Context, req *domain.WebhookRequest) error {
	log := s.loggers.Webhook
	start := s.now()

	log.Webhook(ctx, req.Shop, req.Topic, "received", logging.Fields{
		"hasSession":  req.Session != nil,
		"payloadSize": len(req.Payload),
		"webhookId":   req.WebhookID,
	})

	if s.dedupe != nil && req.WebhookID != "" {
		duplicate, err := s.dedupe.Claim(ctx, req.WebhookID, req.Shop, req.Topic)
		if err != nil {
			log.Warn(ctx, req.Shop, "Webhook dedupe check failed", logging.Fields{"error": err, "webhookId": req.WebhookID})
		} else if duplicate {
			log.Info(ctx, req.Shop, "Duplicate webhook ignored", logging.Fields{"webhookId": req.WebhookID, "topic": string(req.Topic)})
			return nil
		}
	}

	event := &domain.WebhookEvent{
		Shop:       req.Shop,
		Topic:      req.Topic,
		WebhookID:  req.WebhookID,
		Payload:    req.Payload,
		Status:     domain.WebhookEventReceived,
		ReceivedAt: start,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	s.loggers.Database.Database(ctx, req.Shop, "create", "webhook_events", logging.Fields{"topic": string(req.Topic)})

	handled, err := s.dispatcher.Dispatch(ctx, req)
	if !handled {
		log.Warn(ctx, req.Shop, fmt.Sprintf("Unhandled webhook topic: %s", req.Topic), logging.Fields{"topic": string(req.Topic)})
	}

	if err != nil {
		if markErr := s.events.MarkFailed(ctx, event.ID, err.Error(), s.now()); markErr != nil {
			log.Error(ctx, req.Shop, "Failed to mark webhook event failed", logging.Fields{"error": markErr, "eventId": event.ID})
		}
		log.Webhook(ctx, req.Shop, req.Topic, "error", logging.Fields{"error": err, "eventId": event.ID})
	} else {
		if markErr := s.events.MarkProcessed(ctx, event.ID, s.now()); markErr != nil {
			log.Error(ctx, req.Shop, "Failed to mark webhook event processed", logging.Fields{"error": markErr, "eventId": event.ID})
		}
		log.Webhook(ctx, req.Shop, req.Topic, "processed", logging.Fields{"eventId": event.ID, "handled": handled})
	}

	elapsed := s.now().Sub(start)
	s.loggers.App.Metric(ctx, req.Shop, "webhook_processing_time", float64(elapsed.Milliseconds()), logging.Fields{
		"topic":   string(req.Topic),
		"success": err == nil,
	})
	return nil
}
