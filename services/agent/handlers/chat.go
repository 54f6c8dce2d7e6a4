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
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/AgentIdentity/services/agent/datatypes"
	"github.com/AleutianAI/AgentIdentity/services/agent/dispatch"
	"github.com/AleutianAI/AgentIdentity/services/agent/observability"
	"github.com/AleutianAI/AgentIdentity/services/agent/trace"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

var chatTracer = otel.Tracer("aleutian.agent.handlers")

// QueryDispatcher is the slice of dispatch.Dispatcher the chat handler needs.
type QueryDispatcher interface {
	Handle(ctx context.Context, query string, useLLM bool) dispatch.Result
}

// HandleChat processes one chat turn. A fresh trace Recorder is created per
// request, carried in the request context, and returned in the response; it
// never outlives the request and is never shared between requests.
func HandleChat(d QueryDispatcher, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.Message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
			return
		}

		rec := trace.NewRecorder()
		ctx = trace.NewContext(ctx, rec)

		start := time.Now()
		result := d.Handle(ctx, req.Message, req.UseLLM)
		elapsed := time.Since(start)

		status := "success"
		if !result.Success {
			status = "error"
		}
		metrics.RequestsTotal.WithLabelValues(result.AgentType, status).Inc()
		metrics.RequestDurationSeconds.WithLabelValues(result.AgentType).Observe(elapsed.Seconds())
		if result.FallbackUsed {
			metrics.FallbacksTotal.Inc()
			metrics.ToolCallsTotal.WithLabelValues("fallback").Inc()
		} else if result.ToolCalled {
			origin := "loop"
			if result.AgentType == "direct" {
				origin = "direct"
			}
			metrics.ToolCallsTotal.WithLabelValues(origin).Inc()
		}

		slog.Info("chat turn handled",
			"request_id", rec.ID(),
			"agent_type", result.AgentType,
			"success", result.Success,
			"tool_called", result.ToolCalled,
			"fallback", result.FallbackUsed,
			"duration_ms", elapsed.Milliseconds())

		c.JSON(http.StatusOK, datatypes.ChatResponse{
			Response:  result.Response,
			Debug:     rec.Records(),
			Success:   result.Success,
			AgentType: result.AgentType,
			RequestID: rec.ID(),
		})
	}
}
