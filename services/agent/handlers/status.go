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
	"net/http"

	"github.com/AleutianAI/AgentIdentity/services/agent/datatypes"
	"github.com/AleutianAI/AgentIdentity/services/identity"
	"github.com/AleutianAI/AgentIdentity/services/llm"
	"github.com/gin-gonic/gin"
)

// ServiceInfo is the startup configuration the status and health endpoints
// report. AgentAppID is stored raw and truncated on output.
type ServiceInfo struct {
	ServiceName string
	Backend     llm.Backend
	Model       string
	BrokerURL   string
	WeatherURL  string
	AgentAppID  string
}

// HandleStatus reports the resolved decision capability and endpoints.
func HandleStatus(info ServiceInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.StatusResponse{
			Backend:      info.Backend.String(),
			Model:        info.Model,
			BrokerURL:    info.BrokerURL,
			WeatherURL:   info.WeatherURL,
			AgentAppID:   identity.TruncateID(info.AgentAppID),
			LLMAvailable: info.Backend != llm.BackendUnavailable,
		})
	}
}

// HandleHealth is the unauthenticated liveness probe.
func HandleHealth(info ServiceInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"service":      info.ServiceName,
			"agent_app_id": identity.TruncateID(info.AgentAppID),
		})
	}
}
