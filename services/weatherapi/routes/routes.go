// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/AleutianAI/AgentIdentity/services/weatherapi/handlers"
	"github.com/AleutianAI/AgentIdentity/services/weatherapi/middleware"
	"github.com/AleutianAI/AgentIdentity/services/weatherapi/observability"
	"github.com/AleutianAI/AgentIdentity/services/weatherapi/openmeteo"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes wires the Weather API onto the router. Everything under
// /weather sits behind the token validator; health and metrics do not.
func SetupRoutes(router *gin.Engine, meteo *openmeteo.Client, metrics *observability.Metrics) {
	router.GET("/health", handlers.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/weather")
	protected.Use(metrics.CountValidations(), middleware.TokenValidator())
	{
		protected.GET("", handlers.GetWeather(meteo, metrics))
		protected.GET("/forecast", handlers.GetForecast(meteo, metrics))
	}
}
