// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the agent service.
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "aleutian"
const agentSubsystem = "agent"

// Metrics holds the Prometheus instruments for chat dispatch.
type Metrics struct {
	// RequestsTotal counts chat requests.
	// Labels: mode (direct, openai, react), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// FallbacksTotal counts decision-loop runs where the deterministic
	// extractor had to step in because the loop never called the tool.
	FallbacksTotal prometheus.Counter

	// ToolCallsTotal counts weather tool invocations by origin.
	// Labels: origin (loop, fallback, direct)
	ToolCallsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures end-to-end chat handling time.
	// Labels: mode
	RequestDurationSeconds *prometheus.HistogramVec
}

// NewMetrics creates and registers the agent metrics on reg. Pass
// prometheus.DefaultRegisterer in main; tests use a fresh registry so
// repeated registration cannot panic.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "requests_total",
				Help:      "Chat requests by dispatch mode and status.",
			},
			[]string{"mode", "status"},
		),
		FallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "fallbacks_total",
				Help:      "Decision-loop runs rescued by the deterministic extractor.",
			},
		),
		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "tool_calls_total",
				Help:      "Weather tool invocations by origin.",
			},
			[]string{"origin"},
		),
		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end chat handling duration.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"mode"},
		),
	}
}
