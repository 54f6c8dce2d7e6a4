package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AleutianAI/AgentIdentity/services/agent/trace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("aleutian.identity.broker")

// ErrBrokerUnavailable marks any failure to obtain a token from the broker:
// network error, non-2xx status, or a response without a token field.
//
// There is deliberately no retry behind this error. A broker that is already
// failing should not be hammered harder; the failure is surfaced to the user
// immediately and the current tool invocation is abandoned.
var ErrBrokerUnavailable = errors.New("token broker unavailable")

const brokerTimeout = 30 * time.Second

// BrokerClient requests short-lived Agent Identity tokens from the broker
// sidecar on behalf of one configured agent identity.
type BrokerClient struct {
	httpClient *http.Client
	baseURL    string
	agentID    string
}

// NewBrokerClient returns a client for the broker at baseURL minting tokens
// for agentID.
func NewBrokerClient(baseURL, agentID string) *BrokerClient {
	if agentID == "" {
		slog.Warn("AGENT_APP_ID not set, broker requests will carry an empty identity")
	}
	return &BrokerClient{
		httpClient: &http.Client{Timeout: brokerTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		agentID:    agentID,
	}
}

// BaseURL returns the configured broker endpoint.
func (b *BrokerClient) BaseURL() string { return b.baseURL }

// AgentID returns the configured agent identity.
func (b *BrokerClient) AgentID() string { return b.agentID }

type brokerResponse struct {
	AuthorizationHeader string `json:"authorizationHeader"`
}

// FetchToken requests a fresh bearer token from the broker.
//
// The returned value is the full Authorization header value, already in the
// form the resource server expects. On success the token's claims are
// decoded purely for the request trace; a failed decode only disables that
// display and never affects the returned token. Any broker failure wraps
// ErrBrokerUnavailable.
func (b *BrokerClient) FetchToken(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "BrokerClient.FetchToken")
	defer span.End()
	span.SetAttributes(attribute.String("agent.app_id", TruncateID(b.agentID)))

	rec := trace.FromContext(ctx)
	rec.Append("2. TOKEN REQUEST", fmt.Sprintf("Requesting token for agent: %s", TruncateID(b.agentID)), nil)

	tokenURL := fmt.Sprintf("%s/token?AgentIdentity=%s", b.baseURL, url.QueryEscape(b.agentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", brokerFail(span, rec, fmt.Errorf("failed to build broker request: %w", err))
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", brokerFail(span, rec, fmt.Errorf("broker request failed: %v: %w", err, ErrBrokerUnavailable))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", brokerFail(span, rec, fmt.Errorf("failed to read broker response: %v: %w", err, ErrBrokerUnavailable))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", brokerFail(span, rec, fmt.Errorf("broker returned status %d: %w", resp.StatusCode, ErrBrokerUnavailable))
	}

	var out brokerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", brokerFail(span, rec, fmt.Errorf("failed to parse broker response: %v: %w", err, ErrBrokerUnavailable))
	}
	if out.AuthorizationHeader == "" {
		return "", brokerFail(span, rec, fmt.Errorf("broker response missing authorizationHeader: %w", ErrBrokerUnavailable))
	}

	// Decode for trace display only. The token itself is never logged.
	if cs, ok := DecodeClaims(out.AuthorizationHeader); ok {
		rec.Append("2. TOKEN RECEIVED", "Got Agent Identity token from broker",
			map[string]any{"jwt_claims": cs.Display()})
	} else {
		rec.Append("2. TOKEN RECEIVED", "Got token from broker (claims not decodable)", nil)
	}
	slog.Info("fetched agent token", "agent_app_id", TruncateID(b.agentID), "token_len", len(out.AuthorizationHeader))
	return out.AuthorizationHeader, nil
}

func brokerFail(span oteltrace.Span, rec *trace.Recorder, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	rec.Append("2. TOKEN ERROR", "Failed to get token: "+err.Error(), nil)
	slog.Error("broker token fetch failed", "error", err)
	return err
}
