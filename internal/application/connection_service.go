package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"
)

const (
	ActionConnect   = "connect"
	ActionReconnect = "reconnect"
)

// User facing connect outcomes
const (
	MsgConnected           = "Successfully connected to Airbyte!"
	MsgConnectFailed       = "Failed to connect to Airbyte"
	MsgNetworkError        = "Network error occurred while connecting to GrowthHit Dashboard"
	MsgOfflineTokenMissing = "Offline access token not found. Please use the Connect button to authorize background access."
	MsgInvalidAction       = "Invalid action"
)

// StatusResult is what the admin page needs to render the connection state
type StatusResult struct {
	Shop           string                  `json:"shop"`
	Status         domain.ConnectionStatus `json:"connectionStatus"`
	ConnectionData map[string]interface{}  `json:"connectionData"`
	ErrorMessage   string                  `json:"errorMessage,omitempty"`
}

// ConnectResult is the outcome of a connect or reconnect action
type ConnectResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ConnectionService drives a shop's pipeline connection through
// disconnected, connecting, connected and failed.
type ConnectionService struct {
	connections ports.ConnectionRepository
	sessions    ports.SessionRepository
	integration ports.IntegrationClient
	loggers     *logging.Registry
	now         func() time.Time
}

// NewConnectionService creates a new connection service
func NewConnectionService(
	connections ports.ConnectionRepository,
	sessions ports.SessionRepository,
	integration ports.IntegrationClient,
	loggers *logging.Registry,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		sessions:    sessions,
		integration: integration,
		loggers:     loggers,
		now:         time.Now,
	}
}

// CheckStatus asks the handler for the shop's pipeline using the online token and
// stores the outcome. Handler failures become the failed state; the returned error
// is reserved for failures of the state store.
func (s *ConnectionService) CheckStatus(ctx context.Context, shop, onlineToken string) (*StatusResult, error) {
	log := s.loggers.App
	log.Info(ctx, shop, "Starting Airbyte status check", logging.Fields{"endpoint": s.integration.Endpoint()})

	start := s.now()
	resp, err := s.integration.Provision(ctx, shop, onlineToken)
	duration := s.now().Sub(start)
	if resp != nil {
		s.loggers.API.APICall(ctx, shop, "POST", "airbyte-handler", resp.StatusCode, duration, logging.Fields{"purpose": "status_check"})
	}

	status := domain.ConnectionStatusDisconnected
	var errMsg string
	var ids *domain.PipelineIDs
	var payload map[string]interface{}

	switch {
	case err != nil && errors.Is(err, domain.ErrMalformedResponse) && resp != nil && !resp.OK():
		status = domain.ConnectionStatusFailed
		errMsg = fmt.Sprintf("integration status check returned HTTP %d", resp.StatusCode)
		log.Warn(ctx, shop, "Airbyte status check returned an error", logging.Fields{"statusCode": resp.StatusCode, "error": err})
	case err != nil && errors.Is(err, domain.ErrMalformedResponse):
		log.Error(ctx, shop, "Failed to parse Airbyte response JSON", logging.Fields{"error": err})
	case err != nil:
		status = domain.ConnectionStatusFailed
		errMsg = err.Error()
		log.Error(ctx, shop, "Airbyte status check fetch failed", logging.Fields{"error": err, "duration": duration})
	case !resp.OK():
		status = domain.ConnectionStatusFailed
		errMsg = resp.FailureMessage(fmt.Sprintf("integration status check returned HTTP %d", resp.StatusCode))
		log.Warn(ctx, shop, "Airbyte status check returned an error", logging.Fields{"statusCode": resp.StatusCode, "error": errMsg})
	default:
		payload = resp.Body
		status = reportedStatus(resp.Status)
		if reported := responseIDs(resp); reported.Complete() {
			ids = &reported
		}
		if status == domain.ConnectionStatusFailed {
			errMsg = resp.FailureMessage("integration reported a failed connection")
		}
		log.Info(ctx, shop, "Airbyte status check response received", logging.Fields{"statusCode": resp.StatusCode, "status": string(status), "duration": duration})
	}

	if status == domain.ConnectionStatusConnected && ids == nil {
		existing, err := s.connections.GetByShop(ctx, shop)
		if err != nil {
			return nil, fmt.Errorf("failed to load connection state: %w", err)
		}
		if existing == nil {
			status = domain.ConnectionStatusDisconnected
		} else if _, ok := existing.PipelineIDs(); !ok {
			status = domain.ConnectionStatusDisconnected
		}
	}

	update := domain.ConnectionUpdate{
		Status:       status,
		ErrorMessage: domain.StringPtr(errMsg),
		PipelineIDs:  ids,
	}
	if err := s.connections.UpsertStatus(ctx, shop, update); err != nil {
		return nil, fmt.Errorf("failed to save connection status: %w", err)
	}
	s.loggers.Database.Database(ctx, shop, "upsert", "connections", logging.Fields{"status": string(status)})

	return &StatusResult{
		Shop:           shop,
		Status:         status,
		ConnectionData: payload,
		ErrorMessage:   errMsg,
	}, nil
}

// Connect provisions the pipeline with the shop's offline token. Unknown actions and
// a missing offline token are rejected before any state is written.
func (s *ConnectionService) Connect(ctx context.Context, shop, action string) *ConnectResult {
	log := s.loggers.App
	airbyteLog := s.loggers.Airbyte

	if action != ActionConnect && action != ActionReconnect {
		log.Warn(ctx, shop, "Invalid action received", logging.Fields{"action": action})
		return &ConnectResult{Success: false, Message: MsgInvalidAction}
	}

	start := s.now()
	airbyteLog.AirbyteOperation(ctx, shop, "connection_attempt", "starting", logging.Fields{"action": action})

	offline, err := s.sessions.FindOffline(ctx, shop)
	if err != nil {
		return s.connectError(ctx, shop, fmt.Errorf("failed to load offline session: %w", err))
	}
	if offline == nil || offline.AccessToken == "" {
		airbyteLog.AirbyteOperation(ctx, shop, "connection_attempt", "missing_offline_token", nil)
		return &ConnectResult{Success: false, Message: MsgOfflineTokenMissing}
	}

	connecting := domain.ConnectionUpdate{Status: domain.ConnectionStatusConnecting}
	if err := s.connections.UpsertStatus(ctx, shop, connecting); err != nil {
		return s.connectError(ctx, shop, fmt.Errorf("failed to mark connection connecting: %w", err))
	}
	s.loggers.Database.Database(ctx, shop, "upsert", "connections", logging.Fields{"status": string(domain.ConnectionStatusConnecting)})

	airbyteLog.Info(ctx, shop, "Calling Airbyte Handler API", logging.Fields{"endpoint": s.integration.Endpoint()})
	apiStart := s.now()
	resp, err := s.integration.Provision(ctx, shop, offline.AccessToken)
	apiDuration := s.now().Sub(apiStart)
	if resp != nil {
		s.loggers.API.APICall(ctx, shop, "POST", "airbyte-handler", resp.StatusCode, apiDuration, logging.Fields{"resultKeys": keys(resp.Body)})
	}
	if err != nil {
		return s.connectError(ctx, shop, err)
	}

	ids := responseIDs(resp)
	if resp.OK() && ids.Complete() {
		if _, err := s.connections.RecordSuccess(ctx, shop, ids, s.now()); err != nil {
			return s.connectError(ctx, shop, err)
		}
		airbyteLog.AirbyteOperation(ctx, shop, "connection_attempt", "connected", logging.Fields{
			"connectionId": ids.ConnectionID,
			"duration":     s.now().Sub(start),
		})
		log.Metric(ctx, shop, "successful_connections", 1, nil)
		return &ConnectResult{Success: true, Message: MsgConnected, Data: resp.Body}
	}

	message := MsgConnectFailed
	if resp.Message != "" {
		message = resp.Message
	}
	failed := domain.ConnectionUpdate{Status: domain.ConnectionStatusFailed, ErrorMessage: &message}
	if err := s.connections.UpsertStatus(ctx, shop, failed); err != nil {
		return s.connectError(ctx, shop, err)
	}
	failure := resp.Error
	fields := logging.Fields{"error": message, "apiStatus": resp.StatusCode}
	if resp.OK() {
		failure = "integration response missing " + strings.Join(ids.Missing(), ", ")
		fields["reason"] = failure
	}
	airbyteLog.AirbyteOperation(ctx, shop, "connection_attempt", "failed", fields)
	log.Metric(ctx, shop, "failed_connections", 1, nil)

	return &ConnectResult{Success: false, Message: message, Error: failure}
}

// connectError handles transport, decoding and store failures during a connect
func (s *ConnectionService) connectError(ctx context.Context, shop string, cause error) *ConnectResult {
	message := MsgNetworkError
	failed := domain.ConnectionUpdate{Status: domain.ConnectionStatusFailed, ErrorMessage: &message}
	if err := s.connections.UpsertStatus(ctx, shop, failed); err != nil {
		s.loggers.Database.Error(ctx, shop, "Failed to record connection failure", logging.Fields{"error": err})
	}

	s.loggers.Airbyte.Error(ctx, shop, "Connection attempt failed", logging.Fields{"error": cause})
	s.loggers.App.Metric(ctx, shop, "connection_errors", 1, nil)

	return &ConnectResult{Success: false, Message: message, Error: cause.Error()}
}

// reportedStatus maps the handler's status field; anything unrecognised counts as connected
func reportedStatus(raw string) domain.ConnectionStatus {
	switch s := domain.ConnectionStatus(raw); s {
	case domain.ConnectionStatusConnected, domain.ConnectionStatusDisconnected, domain.ConnectionStatusFailed:
		return s
	}
	return domain.ConnectionStatusConnected
}

func responseIDs(resp *ports.IntegrationResponse) domain.PipelineIDs {
	return domain.PipelineIDs{
		ConnectionID:  resp.ConnectionID,
		SourceID:      resp.SourceID,
		DestinationID: resp.DestinationID,
		JobID:         resp.JobID,
	}
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
