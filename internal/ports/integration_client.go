package ports

import (
	"context"
	"net/http"
)

// IntegrationResponse is the decoded reply of the analytics pipeline handler.
// Identifiers arrive as connection_id, source_id, destination_id and job_id.
type IntegrationResponse struct {
	StatusCode    int
	Status        string
	ConnectionID  string
	SourceID      string
	DestinationID string
	JobID         string
	Message       string
	Error         string
	Body          map[string]interface{}
}

// OK reports whether the handler answered with a 2xx status
func (r *IntegrationResponse) OK() bool {
	return r != nil && r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// FailureMessage returns the most specific error text in the body, or fallback
func (r *IntegrationResponse) FailureMessage(fallback string) string {
	switch {
	case r == nil:
		return fallback
	case r.Error != "":
		return r.Error
	case r.Message != "":
		return r.Message
	}
	return fallback
}

// IntegrationClient provisions (or re-checks) a shop's pipeline on the handler service.
// A transport failure returns a nil response. A 2xx reply with an undecodable body
// returns the response together with an error wrapping domain.ErrMalformedResponse.
type IntegrationClient interface {
	Provision(ctx context.Context, shop, accessToken string) (*IntegrationResponse, error)
	Endpoint() string
}
