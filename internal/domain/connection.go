package domain

import "time"

// ConnectionStatus is the lifecycle state of a shop's analytics pipeline connection
type ConnectionStatus string

const (
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusConnecting   ConnectionStatus = "connecting"
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusFailed       ConnectionStatus = "failed"
)

// Valid reports whether s is one of the known statuses
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionStatusDisconnected, ConnectionStatusConnecting, ConnectionStatusConnected, ConnectionStatusFailed:
		return true
	}
	return false
}

// PipelineIDs identifies the resources created on the integration service for a shop
type PipelineIDs struct {
	ConnectionID  string `json:"connectionId"`
	SourceID      string `json:"sourceId"`
	DestinationID string `json:"destinationId"`
	JobID         string `json:"jobId"`
}

// Complete reports whether all four identifiers are known. A connected record requires it.
func (p PipelineIDs) Complete() bool {
	return len(p.Missing()) == 0
}

// Missing lists the response field names of the absent identifiers
func (p PipelineIDs) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"connection_id", p.ConnectionID},
		{"source_id", p.SourceID},
		{"destination_id", p.DestinationID},
		{"job_id", p.JobID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Connection is the persisted integration state of one shop
type Connection struct {
	ID            string           `json:"id"`
	Shop          string           `json:"shop"`
	Status        ConnectionStatus `json:"status"`
	ConnectionID  *string          `json:"connectionId,omitempty"`
	SourceID      *string          `json:"sourceId,omitempty"`
	DestinationID *string          `json:"destinationId,omitempty"`
	JobID         *string          `json:"jobId,omitempty"`
	ErrorMessage  *string          `json:"errorMessage,omitempty"`
	LastSyncAt    *time.Time       `json:"lastSyncAt,omitempty"`
	SyncCount     int64            `json:"syncCount"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// PipelineIDs returns the stored identifiers, or false when any required one is missing
func (c *Connection) PipelineIDs() (PipelineIDs, bool) {
	ids := PipelineIDs{
		ConnectionID:  deref(c.ConnectionID),
		SourceID:      deref(c.SourceID),
		DestinationID: deref(c.DestinationID),
		JobID:         deref(c.JobID),
	}
	return ids, ids.Complete()
}

// ConnectionUpdate describes a status write against a shop's connection record.
// A nil PipelineIDs leaves the stored identifiers untouched.
type ConnectionUpdate struct {
	Status       ConnectionStatus
	ErrorMessage *string
	PipelineIDs  *PipelineIDs
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
