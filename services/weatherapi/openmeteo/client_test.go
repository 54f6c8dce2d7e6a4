// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package openmeteo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecastBody = `{
	"timezone": "America/Chicago",
	"current": {
		"time": "2025-06-01T12:00",
		"temperature_2m": 88.6,
		"relative_humidity_2m": 41.2,
		"weather_code": 2,
		"wind_speed_10m": 9.7
	}
}`

func TestFetch_KnownCitySkipsGeocoding(t *testing.T) {
	var geocodeCalls int

	forecastSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "32.7767", q.Get("latitude"))
		assert.Equal(t, "-96.7970", q.Get("longitude"))
		assert.Equal(t, "fahrenheit", q.Get("temperature_unit"))
		assert.Contains(t, q.Get("current"), "weather_code")
		fmt.Fprint(w, forecastBody)
	}))
	defer forecastSrv.Close()

	geocodeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geocodeCalls++
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer geocodeSrv.Close()

	c := NewClient(forecastSrv.URL, geocodeSrv.URL)
	current, err := c.Fetch(context.Background(), "Dallas")

	require.NoError(t, err)
	assert.Zero(t, geocodeCalls, "table hit must not geocode")
	assert.Equal(t, "Dallas", current.City)
	assert.Equal(t, 89, current.Temperature, "readings round to the nearest integer")
	assert.Equal(t, 41, current.Humidity)
	assert.Equal(t, "Partly Cloudy", current.Condition)
	assert.Equal(t, 10, current.WindSpeed)
	assert.Equal(t, "2025-06-01T12:00", current.Timestamp)
	assert.Equal(t, "America/Chicago", current.Timezone)
}

func TestFetch_CaseInsensitiveTableLookup(t *testing.T) {
	forecastSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, forecastBody)
	}))
	defer forecastSrv.Close()

	c := NewClient(forecastSrv.URL, "http://unused.invalid")
	current, err := c.Fetch(context.Background(), "nEw YoRk")

	require.NoError(t, err)
	assert.Equal(t, "New York", current.City)
}

func TestFetch_UnknownCityGeocodes(t *testing.T) {
	forecastSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, forecastBody)
	}))
	defer forecastSrv.Close()

	geocodeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "Reykjavik", r.URL.Query().Get("name"))
		fmt.Fprint(w, `{"results":[{"name":"Reykjavík","latitude":64.1466,"longitude":-21.9426}]}`)
	}))
	defer geocodeSrv.Close()

	c := NewClient(forecastSrv.URL, geocodeSrv.URL)
	current, err := c.Fetch(context.Background(), "Reykjavik")

	require.NoError(t, err)
	assert.Equal(t, "Reykjavík", current.City, "geocoder's canonical name wins")
}

func TestFetch_GeocodeMiss(t *testing.T) {
	geocodeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer geocodeSrv.Close()

	c := NewClient("http://unused.invalid", geocodeSrv.URL)
	_, err := c.Fetch(context.Background(), "Atlantis")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCityNotFound)
}

func TestFetch_UpstreamError(t *testing.T) {
	forecastSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer forecastSrv.Close()

	c := NewClient(forecastSrv.URL, "http://unused.invalid")
	_, err := c.Fetch(context.Background(), "Seattle")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCityNotFound)
	assert.Contains(t, err.Error(), "status 429")
}

func TestFetch_UnknownWeatherCode(t *testing.T) {
	forecastSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"timezone":"UTC","current":{"time":"2025-06-01T12:00","temperature_2m":50,"relative_humidity_2m":50,"weather_code":42,"wind_speed_10m":5}}`)
	}))
	defer forecastSrv.Close()

	c := NewClient(forecastSrv.URL, "http://unused.invalid")
	current, err := c.Fetch(context.Background(), "Seattle")

	require.NoError(t, err)
	assert.Equal(t, "Unknown", current.Condition)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "New York", titleCase("new york"))
	assert.Equal(t, "Dallas", titleCase("DALLAS"))
	assert.Equal(t, "San Francisco", titleCase("sAn fRanCisco"))
}
