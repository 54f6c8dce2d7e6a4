// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the Weather API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gin-gonic/gin"
)

const metricsNamespace = "aleutian"
const weatherSubsystem = "weatherapi"

// Metrics holds the Prometheus instruments for the Weather API.
type Metrics struct {
	// ValidationsTotal counts token validation outcomes.
	// Labels: result (accepted, rejected)
	ValidationsTotal *prometheus.CounterVec

	// RequestsTotal counts weather lookups by status.
	// Labels: endpoint (weather, forecast), status (ok, not_found, upstream_error)
	RequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the Weather API metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: weatherSubsystem,
				Name:      "validations_total",
				Help:      "Token validation outcomes.",
			},
			[]string{"result"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: weatherSubsystem,
				Name:      "requests_total",
				Help:      "Weather lookups by endpoint and status.",
			},
			[]string{"endpoint", "status"},
		),
	}
}

// CountValidations observes every response the token validator produced.
// Runs after the handler chain so it can read the final status code.
func (m *Metrics) CountValidations() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() == 401 {
			m.ValidationsTotal.WithLabelValues("rejected").Inc()
			return
		}
		m.ValidationsTotal.WithLabelValues("accepted").Inc()
	}
}
