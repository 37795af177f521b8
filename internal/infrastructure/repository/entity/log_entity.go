package entity

import (
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
)

// MongoLogDoc is one persisted application log line
type MongoLogDoc struct {
	Level     string                 `bson:"level"`
	Message   string                 `bson:"message"`
	Source    string                 `bson:"source"`
	Shop      string                 `bson:"shop"`
	RequestID string                 `bson:"requestId,omitempty"`
	UserAgent string                 `bson:"userAgent,omitempty"`
	IPAddress string                 `bson:"ipAddress,omitempty"`
	Context   map[string]interface{} `bson:"context,omitempty"`
	Timestamp time.Time              `bson:"timestamp"`
}

func MongoLogDocFromDomain(r *domain.LogRecord) *MongoLogDoc {
	return &MongoLogDoc{
		Level:     string(r.Level),
		Message:   r.Message,
		Source:    r.Source,
		Shop:      r.Shop,
		RequestID: r.RequestID,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
		Context:   r.Context,
		Timestamp: r.Timestamp,
	}
}

// MongoMetricDoc is one persisted metric observation
type MongoMetricDoc struct {
	Shop       string                 `bson:"shop,omitempty"`
	MetricName string                 `bson:"metricName"`
	Value      float64                `bson:"value"`
	Metadata   map[string]interface{} `bson:"metadata,omitempty"`
	Timestamp  time.Time              `bson:"timestamp"`
}

func MongoMetricDocFromDomain(r *domain.MetricRecord) *MongoMetricDoc {
	return &MongoMetricDoc{
		Shop:       r.Shop,
		MetricName: r.MetricName,
		Value:      r.Value,
		Metadata:   r.Metadata,
		Timestamp:  r.Timestamp,
	}
}
