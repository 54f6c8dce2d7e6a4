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
	"github.com/AleutianAI/AgentIdentity/services/agent/handlers"
	"github.com/AleutianAI/AgentIdentity/services/agent/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes wires the agent API onto the router.
func SetupRoutes(router *gin.Engine, d handlers.QueryDispatcher,
	metrics *observability.Metrics, info handlers.ServiceInfo) {

	router.GET("/health", handlers.HandleHealth(info))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/chat", handlers.HandleChat(d, metrics))
		api.GET("/status", handlers.HandleStatus(info))
	}
}
