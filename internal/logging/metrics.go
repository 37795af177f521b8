package logging

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors metric records and API call timings into Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	events      *prometheus.CounterVec
	values      *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "growthhit",
			Name:      "app_metric_events_total",
			Help:      "Number of recorded app metric observations.",
		}, []string{"metric"}),
		values: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "growthhit",
			Name:      "app_metric_value_total",
			Help:      "Sum of recorded app metric values.",
		}, []string{"metric"}),
		apiDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "growthhit",
			Name:      "api_call_duration_seconds",
			Help:      "Duration of logged API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "method", "status"}),
	}
}

func (m *Metrics) observe(name string, value float64) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
	if value >= 0 {
		m.values.WithLabelValues(name).Add(value)
	}
}

func (m *Metrics) observeAPICall(source, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.apiDuration.WithLabelValues(source, method, strconv.Itoa(status)).Observe(d.Seconds())
}
