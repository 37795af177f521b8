package airbyte

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"
)

const maxResponseBytes = 1 << 20

type provisionRequest struct {
	Shop        string `json:"shop"`
	APIPassword string `json:"api_password"`
}

// Client talks to the pipeline handler service that creates the shop's
// source, destination and connection.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a handler client. A zero timeout leaves requests bounded only by ctx.
func NewClient(endpoint string, timeout time.Duration) ports.IntegrationClient {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Provision posts the shop and its Admin API token to the handler
func (c *Client) Provision(ctx context.Context, shop, accessToken string) (*ports.IntegrationResponse, error) {
	payload, err := json.Marshal(provisionRequest{Shop: shop, APIPassword: accessToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("integration request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read integration response: %w", err)
	}

	out := &ports.IntegrationResponse{StatusCode: resp.StatusCode}
	// the response is returned with the error so callers can still see the status code
	if err := decode(body, out); err != nil {
		return out, fmt.Errorf("%w: HTTP %d: %v", domain.ErrMalformedResponse, resp.StatusCode, err)
	}
	return out, nil
}

func decode(body []byte, out *ports.IntegrationResponse) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}

	out.Body = raw
	out.Status = field(raw, "status")
	out.ConnectionID = field(raw, "connection_id")
	out.SourceID = field(raw, "source_id")
	out.DestinationID = field(raw, "destination_id")
	out.JobID = field(raw, "job_id")
	out.Message = field(raw, "message")
	out.Error = field(raw, "error")
	return nil
}

// field reads a scalar as a string; job ids come back as numbers
func field(raw map[string]interface{}, key string) string {
	switch v := raw[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}
