// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"

	"github.com/AleutianAI/AgentIdentity/services/identity"
	"github.com/AleutianAI/AgentIdentity/services/weatherapi/middleware"
	"github.com/AleutianAI/AgentIdentity/services/weatherapi/observability"
	"github.com/AleutianAI/AgentIdentity/services/weatherapi/openmeteo"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var weatherTracer = otel.Tracer("aleutian.weatherapi.handlers")

// validatedBy is the provenance marker stamped onto every response that
// passed the token validator.
const validatedBy = "Agent Identity Token"

// GetWeather returns current conditions for the requested city. Requires a
// validated Agent Identity token; the claims stored by the middleware feed
// the provenance fields only.
func GetWeather(meteo *openmeteo.Client, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := weatherTracer.Start(c.Request.Context(), "GetWeather")
		defer span.End()

		city := c.DefaultQuery("city", "seattle")
		claims := middleware.GetClaims(c)
		appID := claimAppID(claims)

		current, err := meteo.Fetch(ctx, city)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status := http.StatusBadGateway
			if errors.Is(err, openmeteo.ErrCityNotFound) {
				status = http.StatusNotFound
			}
			metrics.RequestsTotal.WithLabelValues("weather", lookupStatus(err)).Inc()
			slog.Warn("weather lookup failed", "city", city, "error", err)
			c.JSON(status, gin.H{
				"error":        err.Error(),
				"city":         city,
				"validated_by": validatedBy,
				"agent_app_id": appID,
			})
			return
		}

		metrics.RequestsTotal.WithLabelValues("weather", "ok").Inc()
		slog.Info("weather request served",
			"city", current.City,
			"temperature", current.Temperature,
			"agent_app_id", identity.TruncateID(appID))

		c.JSON(http.StatusOK, gin.H{
			"city":              current.City,
			"temperature":       current.Temperature,
			"temperature_unit":  "F",
			"condition":         current.Condition,
			"humidity":          current.Humidity,
			"humidity_unit":     "%",
			"wind_speed":        current.WindSpeed,
			"wind_unit":         "mph",
			"timestamp":         current.Timestamp,
			"timezone":          current.Timezone,
			"validated_by":      validatedBy,
			"agent_app_id":      appID,
			"is_agent_identity": claims.IsAgentIdentity(),
			"data_source":       "Open-Meteo API (Real-time)",
		})
	}
}

// forecastConditions is the condition pool for the synthetic forecast.
var forecastConditions = []string{"Sunny", "Partly Cloudy", "Cloudy", "Rainy", "Windy"}

// GetForecast returns a 5-day outlook derived from the current reading.
// Open-Meteo's free tier only serves current conditions on this path, so the
// daily spread is synthesized around today's temperature.
func GetForecast(meteo *openmeteo.Client, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := weatherTracer.Start(c.Request.Context(), "GetForecast")
		defer span.End()

		city := c.DefaultQuery("city", "seattle")
		claims := middleware.GetClaims(c)
		appID := claimAppID(claims)

		current, err := meteo.Fetch(ctx, city)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status := http.StatusBadGateway
			if errors.Is(err, openmeteo.ErrCityNotFound) {
				status = http.StatusNotFound
			}
			metrics.RequestsTotal.WithLabelValues("forecast", lookupStatus(err)).Inc()
			c.JSON(status, gin.H{
				"error":        err.Error(),
				"city":         city,
				"validated_by": validatedBy,
				"agent_app_id": appID,
			})
			return
		}

		forecast := make([]gin.H, 0, 5)
		for day := 1; day <= 5; day++ {
			forecast = append(forecast, gin.H{
				"day":                  day,
				"high":                 current.Temperature + rand.IntN(16) - 5,
				"low":                  current.Temperature - 5 - rand.IntN(11),
				"condition":            forecastConditions[rand.IntN(len(forecastConditions))],
				"precipitation_chance": rand.IntN(101),
			})
		}

		metrics.RequestsTotal.WithLabelValues("forecast", "ok").Inc()
		c.JSON(http.StatusOK, gin.H{
			"city":         current.City,
			"forecast":     forecast,
			"validated_by": validatedBy,
			"agent_app_id": appID,
		})
	}
}

// HandleHealth is the unauthenticated liveness probe.
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "Weather API"})
}

func lookupStatus(err error) string {
	if errors.Is(err, openmeteo.ErrCityNotFound) {
		return "not_found"
	}
	return "upstream_error"
}

func claimAppID(claims *identity.ClaimSet) string {
	if claims == nil || claims.AppID == "" {
		return "unknown"
	}
	return claims.AppID
}
