// Package logging provides the category loggers used across the app.
// Every record goes to the console through zerolog. Records that belong to a
// shop are also appended to a LogSink in the background; sink failures are
// reported on the console and never reach the caller.
package logging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"

	"github.com/rs/zerolog"
)

// Fields carries structured context attached to a record
type Fields map[string]interface{}

// Source names used by the registry
const (
	SourceApp      = "app"
	SourceAuth     = "auth"
	SourceAirbyte  = "airbyte"
	SourceWebhook  = "webhook"
	SourceAPI      = "api"
	SourceDatabase = "database"
)

const defaultSinkTimeout = 5 * time.Second

// Options configures a Registry
type Options struct {
	Console zerolog.Logger
	Sink    ports.LogSink
	Metrics *Metrics
	// Debug enables debug records; they are dropped otherwise
	Debug       bool
	SinkTimeout time.Duration
}

type core struct {
	console  zerolog.Logger
	sink     ports.LogSink
	metrics  *Metrics
	debug    bool
	timeout  time.Duration
	inflight sync.WaitGroup
	now      func() time.Time
}

// Logger writes records for a single source
type Logger struct {
	source string
	core   *core
}

// Source returns the logger's source name
func (l *Logger) Source() string {
	return l.source
}

func (l *Logger) Debug(ctx context.Context, shop, msg string, fields Fields) {
	l.log(ctx, domain.LogLevelDebug, shop, msg, fields)
}

func (l *Logger) Info(ctx context.Context, shop, msg string, fields Fields) {
	l.log(ctx, domain.LogLevelInfo, shop, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, shop, msg string, fields Fields) {
	l.log(ctx, domain.LogLevelWarn, shop, msg, fields)
}

func (l *Logger) Error(ctx context.Context, shop, msg string, fields Fields) {
	l.log(ctx, domain.LogLevelError, shop, msg, fields)
}

// APICall records an outbound or inbound HTTP exchange. The level follows the status:
// error from 400, warn from 300, info otherwise.
func (l *Logger) APICall(ctx context.Context, shop, method, target string, status int, duration time.Duration, fields Fields) {
	level := domain.LogLevelInfo
	switch {
	case status >= 400:
		level = domain.LogLevelError
	case status >= 300:
		level = domain.LogLevelWarn
	}

	merged := merge(fields, Fields{
		"method":     method,
		"url":        target,
		"statusCode": status,
		"duration":   duration.Milliseconds(),
		"type":       "api_call",
	})
	l.core.metrics.observeAPICall(l.source, method, status, duration)
	l.log(ctx, level, shop, fmt.Sprintf("API %s %s - %d (%dms)", method, target, status, duration.Milliseconds()), merged)
}

// AirbyteOperation records a step of the pipeline lifecycle
func (l *Logger) AirbyteOperation(ctx context.Context, shop, operation, status string, fields Fields) {
	level := domain.LogLevelInfo
	if status == "error" {
		level = domain.LogLevelError
	}
	merged := merge(fields, Fields{"operation": operation, "status": status, "type": "airbyte_operation"})
	l.log(ctx, level, shop, fmt.Sprintf("Airbyte %s - %s", operation, status), merged)
}

// Webhook records a webhook lifecycle event
func (l *Logger) Webhook(ctx context.Context, shop string, topic domain.WebhookTopic, status string, fields Fields) {
	level := domain.LogLevelInfo
	if status == "error" {
		level = domain.LogLevelError
	}
	merged := merge(fields, Fields{"topic": string(topic), "status": status, "type": "webhook"})
	l.log(ctx, level, shop, fmt.Sprintf("Webhook %s - %s", topic, status), merged)
}

// Auth records an authentication event
func (l *Logger) Auth(ctx context.Context, shop, event string, success bool, fields Fields) {
	level := domain.LogLevelInfo
	outcome := "success"
	if !success {
		level = domain.LogLevelWarn
		outcome = "failed"
	}
	merged := merge(fields, Fields{"event": event, "success": success, "type": "auth"})
	l.log(ctx, level, shop, fmt.Sprintf("Auth %s - %s", event, outcome), merged)
}

// Database records a store operation at debug level
func (l *Logger) Database(ctx context.Context, shop, operation, table string, fields Fields) {
	merged := merge(fields, Fields{"operation": operation, "table": table, "type": "database"})
	l.log(ctx, domain.LogLevelDebug, shop, fmt.Sprintf("Database %s on %s", operation, table), merged)
}

// Metric logs a numeric observation at info level and stores it when the shop is known
func (l *Logger) Metric(ctx context.Context, shop, name string, value float64, fields Fields) {
	l.core.metrics.observe(name, value)

	if sink := l.core.sink; sink != nil && shop != "" {
		rec := &domain.MetricRecord{
			Shop:       shop,
			MetricName: name,
			Value:      value,
			Metadata:   normalize(fields),
			Timestamp:  l.core.now(),
		}
		l.persist("metric", func(ctx context.Context) error { return sink.AppendMetric(ctx, rec) })
	}

	merged := merge(fields, Fields{"metricName": name, "value": value, "type": "metric"})
	l.log(ctx, domain.LogLevelInfo, shop, fmt.Sprintf("Metric %s: %v", name, value), merged)
}

func (l *Logger) log(ctx context.Context, level domain.LogLevel, shop, msg string, fields Fields) {
	if level == domain.LogLevelDebug && !l.core.debug {
		return
	}

	info := RequestInfoFromContext(ctx)
	requestID := info.RequestID
	if requestID == "" {
		if id, ok := fields["requestId"].(string); ok {
			requestID = id
		}
	}

	ev := l.core.console.WithLevel(zerologLevel(level)).Str("source", l.source)
	if shop != "" {
		ev = ev.Str("shop", shop)
	}
	if requestID != "" {
		ev = ev.Str("requestId", requestID)
	}
	if len(fields) > 0 {
		ev = ev.Fields(map[string]interface{}(fields))
	}
	ev.Msg(msg)

	if shop == "" || l.core.sink == nil {
		return
	}

	sink := l.core.sink
	rec := &domain.LogRecord{
		Level:     level,
		Message:   msg,
		Source:    l.source,
		Shop:      shop,
		RequestID: requestID,
		UserAgent: info.UserAgent,
		IPAddress: info.IPAddress,
		Context:   normalize(fields),
		Timestamp: l.core.now(),
	}
	l.persist("log", func(ctx context.Context) error { return sink.AppendLog(ctx, rec) })
}

func (l *Logger) persist(kind string, write func(ctx context.Context) error) {
	c := l.core
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.console.Error().Interface("panic", rec).Str("source", l.source).Msgf("Failed to write %s to database", kind)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := write(ctx); err != nil {
			c.console.Error().Err(err).Str("source", l.source).Msgf("Failed to write %s to database", kind)
		}
	}()
}

func zerologLevel(level domain.LogLevel) zerolog.Level {
	switch level {
	case domain.LogLevelDebug:
		return zerolog.DebugLevel
	case domain.LogLevelWarn:
		return zerolog.WarnLevel
	case domain.LogLevelError:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func merge(base, extra Fields) Fields {
	out := make(Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// normalize makes field values safe to store: errors become their message and
// durations become milliseconds.
func normalize(fields Fields) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case error:
			out[k] = val.Error()
		case time.Duration:
			out[k] = val.Milliseconds()
		case fmt.Stringer:
			out[k] = val.String()
		default:
			out[k] = v
		}
	}
	return out
}
