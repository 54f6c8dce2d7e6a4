// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package openmeteo fetches real weather observations from the Open-Meteo
// public API (free, no API key).
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("aleutian.weatherapi.openmeteo")

// ErrCityNotFound means neither the coordinate table nor the geocoding API
// could resolve the requested city.
var ErrCityNotFound = errors.New("city not found")

// cityCoords holds pre-resolved coordinates for common cities so they skip
// the geocoding round-trip. Keys are lowercase.
var cityCoords = map[string][2]float64{
	"seattle":       {47.6062, -122.3321},
	"new york":      {40.7128, -74.0060},
	"los angeles":   {33.9425, -118.4081},
	"chicago":       {41.8781, -87.6298},
	"miami":         {25.7617, -80.1918},
	"denver":        {39.7392, -104.9903},
	"san francisco": {37.7749, -122.4194},
	"boston":        {42.3601, -71.0589},
	"austin":        {30.2672, -97.7431},
	"portland":      {45.5152, -122.6784},
	"dallas":        {32.7767, -96.7970},
	"houston":       {29.7604, -95.3698},
	"phoenix":       {33.4484, -112.0740},
	"atlanta":       {33.7490, -84.3880},
	"london":        {51.5074, -0.1278},
	"paris":         {48.8566, 2.3522},
	"tokyo":         {35.6762, 139.6503},
	"sydney":        {-33.8688, 151.2093},
	"toronto":       {43.6532, -79.3832},
	"berlin":        {52.5200, 13.4050},
	"mumbai":        {19.0760, 72.8777},
	"dubai":         {25.2048, 55.2708},
	"singapore":     {1.3521, 103.8198},
}

// weatherCodes maps WMO weather codes to display conditions.
var weatherCodes = map[int]string{
	0:  "Clear Sky",
	1:  "Mainly Clear",
	2:  "Partly Cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing Rime Fog",
	51: "Light Drizzle",
	53: "Moderate Drizzle",
	55: "Dense Drizzle",
	61: "Slight Rain",
	63: "Moderate Rain",
	65: "Heavy Rain",
	71: "Slight Snow",
	73: "Moderate Snow",
	75: "Heavy Snow",
	80: "Slight Rain Showers",
	81: "Moderate Rain Showers",
	82: "Violent Rain Showers",
	95: "Thunderstorm",
	96: "Thunderstorm with Hail",
	99: "Thunderstorm with Heavy Hail",
}

// Current is one resolved weather reading.
type Current struct {
	City        string
	Temperature int
	Humidity    int
	Condition   string
	WindSpeed   int
	Timestamp   string
	Timezone    string
}

// Client talks to the Open-Meteo forecast and geocoding APIs. Outbound calls
// share a limiter so a burst of chat traffic cannot hammer the free tier.
type Client struct {
	httpClient  *http.Client
	forecastURL string
	geocodeURL  string
	limiter     *rate.Limiter
}

// NewClient returns a client using the given endpoint bases, e.g.
// "https://api.open-meteo.com" and "https://geocoding-api.open-meteo.com".
func NewClient(forecastURL, geocodeURL string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		forecastURL: strings.TrimSuffix(forecastURL, "/"),
		geocodeURL:  strings.TrimSuffix(geocodeURL, "/"),
		limiter:     rate.NewLimiter(rate.Limit(5), 10),
	}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Timezone string `json:"timezone"`
	Current  struct {
		Time             string  `json:"time"`
		Temperature2m    float64 `json:"temperature_2m"`
		RelativeHumidity float64 `json:"relative_humidity_2m"`
		WeatherCode      int     `json:"weather_code"`
		WindSpeed10m     float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// Fetch resolves city to coordinates (table first, geocoding API second)
// and retrieves the current conditions. A geocoding miss returns
// ErrCityNotFound; every other failure is an upstream error.
func (c *Client) Fetch(ctx context.Context, city string) (*Current, error) {
	ctx, span := tracer.Start(ctx, "OpenMeteo.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("weather.city", city))

	lat, lon, canonical, err := c.resolve(ctx, city)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	forecastURL := fmt.Sprintf(
		"%s/v1/forecast?latitude=%.4f&longitude=%.4f"+
			"&current=temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m"+
			"&temperature_unit=fahrenheit&timezone=auto",
		c.forecastURL, lat, lon)

	var parsed forecastResponse
	if err := c.getJSON(ctx, forecastURL, &parsed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("weather lookup failed: %w", err)
	}

	condition, ok := weatherCodes[parsed.Current.WeatherCode]
	if !ok {
		condition = "Unknown"
	}
	timestamp := parsed.Current.Time
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	timezone := parsed.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	return &Current{
		City:        canonical,
		Temperature: int(parsed.Current.Temperature2m + 0.5),
		Humidity:    int(parsed.Current.RelativeHumidity + 0.5),
		Condition:   condition,
		WindSpeed:   int(parsed.Current.WindSpeed10m + 0.5),
		Timestamp:   timestamp,
		Timezone:    timezone,
	}, nil
}

// resolve returns coordinates and the canonical city name.
func (c *Client) resolve(ctx context.Context, city string) (lat, lon float64, canonical string, err error) {
	if coords, ok := cityCoords[strings.ToLower(city)]; ok {
		return coords[0], coords[1], titleCase(city), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, 0, "", err
	}
	geoURL := fmt.Sprintf("%s/v1/search?name=%s&count=1", c.geocodeURL, url.QueryEscape(city))
	var parsed geocodeResponse
	if err := c.getJSON(ctx, geoURL, &parsed); err != nil {
		return 0, 0, "", fmt.Errorf("geocoding failed: %w", err)
	}
	if len(parsed.Results) == 0 {
		return 0, 0, "", fmt.Errorf("city %q: %w", city, ErrCityNotFound)
	}
	hit := parsed.Results[0]
	return hit.Latitude, hit.Longitude, hit.Name, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// titleCase uppercases the first letter of each space-separated word, which
// is how city names from the coordinate table are displayed.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
