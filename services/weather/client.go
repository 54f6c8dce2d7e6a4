// Package weather is the agent-side client of the protected Weather API.
package weather

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

var tracer = otel.Tracer("aleutian.weather.client")

// ErrResourceUnavailable marks a failed call to the Weather API: network
// error, non-2xx status, or a body that does not parse as an observation.
var ErrResourceUnavailable = errors.New("weather resource unavailable")

const resourceTimeout = 10 * time.Second

// Observation is one weather reading returned by the Weather API, including
// the provenance fields the API stamps onto every validated response.
type Observation struct {
	City            string `json:"city"`
	Temperature     int    `json:"temperature"`
	TemperatureUnit string `json:"temperature_unit"`
	Condition       string `json:"condition"`
	Humidity        int    `json:"humidity"`
	HumidityUnit    string `json:"humidity_unit"`
	WindSpeed       int    `json:"wind_speed"`
	WindUnit        string `json:"wind_unit"`
	Timestamp       string `json:"timestamp"`
	Timezone        string `json:"timezone"`
	ValidatedBy     string `json:"validated_by"`
	AgentAppID      string `json:"agent_app_id"`
	IsAgentIdentity bool   `json:"is_agent_identity"`
	DataSource      string `json:"data_source"`
}

// Format renders the observation as the plain-text block shown in chat
// responses and fed back to the decision loop as the tool observation.
func (o *Observation) Format() string {
	return fmt.Sprintf(`Weather for %s:
- Temperature: %d°%s
- Condition: %s
- Humidity: %d%s
- Wind Speed: %d %s
- Timestamp: %s (%s)
- Data Source: %s
- Authentication: Validated by %s
- Agent App ID: %s`,
		o.City, o.Temperature, o.TemperatureUnit, o.Condition,
		o.Humidity, o.HumidityUnit, o.WindSpeed, o.WindUnit,
		o.Timestamp, o.Timezone, o.DataSource, o.ValidatedBy, o.AgentAppID)
}

// Client calls the Weather API with an Agent Identity token.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a client for the Weather API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: resourceTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// BaseURL returns the configured Weather API endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// Fetch retrieves the current weather for city, presenting token in the
// Authorization header exactly as received from the broker. The broker
// already returns the header value in its final form, so no "Bearer " prefix
// is added here. Failures wrap ErrResourceUnavailable.
func (c *Client) Fetch(ctx context.Context, city, token string) (*Observation, error) {
	ctx, span := tracer.Start(ctx, "WeatherClient.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("weather.city", city))

	rec := trace.FromContext(ctx)
	rec.Append("3. WEATHER API", "Calling Weather API for: "+city, nil)

	reqURL := fmt.Sprintf("%s/weather?city=%s", c.baseURL, url.QueryEscape(city))
	rec.Append("3. WEATHER API", "URL: "+reqURL, map[string]any{"headers": "Authorization: Bearer <token>"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, resourceFail(span, rec, fmt.Errorf("failed to build weather request: %w", err))
	}
	req.Header.Set("Authorization", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resourceFail(span, rec, fmt.Errorf("weather API call failed: %v: %w", err, ErrResourceUnavailable))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resourceFail(span, rec, fmt.Errorf("failed to read weather response: %v: %w", err, ErrResourceUnavailable))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resourceFail(span, rec,
			fmt.Errorf("weather API returned status %d: %s: %w", resp.StatusCode, string(body), ErrResourceUnavailable))
	}

	var obs Observation
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, resourceFail(span, rec, fmt.Errorf("failed to parse weather response: %v: %w", err, ErrResourceUnavailable))
	}

	rec.Append("3. WEATHER RESPONSE", "Got weather data from API", obs)
	return &obs, nil
}

func resourceFail(span oteltrace.Span, rec *trace.Recorder, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	rec.Append("3. WEATHER ERROR", "API call failed: "+err.Error(), nil)
	slog.Error("weather API call failed", "error", err)
	return err
}
