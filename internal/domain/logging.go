package domain

import "time"

// LogLevel is the severity of a structured log record
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogRecord is a persisted application log line
type LogRecord struct {
	Level     LogLevel
	Message   string
	Source    string
	Shop      string
	RequestID string
	UserAgent string
	IPAddress string
	Context   map[string]interface{}
	Timestamp time.Time
}

// MetricRecord is a persisted numeric observation
type MetricRecord struct {
	Shop       string
	MetricName string
	Value      float64
	Metadata   map[string]interface{}
	Timestamp  time.Time
}
