// Package loggingtest provides an in-memory sink for tests.
package loggingtest

import (
	"context"
	"errors"
	"sync"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
)

// MemorySink records everything appended to it
type MemorySink struct {
	mu      sync.Mutex
	logs    []domain.LogRecord
	metrics []domain.MetricRecord
	// Fail makes every append return an error
	Fail bool
}

func (s *MemorySink) AppendLog(_ context.Context, rec *domain.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return errors.New("sink unavailable")
	}
	s.logs = append(s.logs, *rec)
	return nil
}

func (s *MemorySink) AppendMetric(_ context.Context, rec *domain.MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return errors.New("sink unavailable")
	}
	s.metrics = append(s.metrics, *rec)
	return nil
}

// Logs returns a copy of the stored log records
func (s *MemorySink) Logs() []domain.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LogRecord(nil), s.logs...)
}

// Metrics returns a copy of the stored metric records
func (s *MemorySink) Metrics() []domain.MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MetricRecord(nil), s.metrics...)
}

// MetricsNamed returns the stored metrics with the given name
func (s *MemorySink) MetricsNamed(name string) []domain.MetricRecord {
	var out []domain.MetricRecord
	for _, m := range s.Metrics() {
		if m.MetricName == name {
			out = append(out, m)
		}
	}
	return out
}

// HasMessage reports whether a log record with msg was stored
func (s *MemorySink) HasMessage(msg string) bool {
	for _, l := range s.Logs() {
		if l.Message == msg {
			return true
		}
	}
	return false
}
