// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/AgentIdentity/pkg/logging"
	"github.com/AleutianAI/AgentIdentity/services/agent/dispatch"
	"github.com/AleutianAI/AgentIdentity/services/agent/handlers"
	"github.com/AleutianAI/AgentIdentity/services/agent/observability"
	"github.com/AleutianAI/AgentIdentity/services/agent/routes"
	"github.com/AleutianAI/AgentIdentity/services/identity"
	"github.com/AleutianAI/AgentIdentity/services/llm"
	"github.com/AleutianAI/AgentIdentity/services/ratelimit"
	"github.com/AleutianAI/AgentIdentity/services/weather"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func initTracer(serviceName string) (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := envOr("AGENT_PORT", "3000")

	logging.Setup("agent-service")

	cleanup, err := initTracer("agent-service")
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	brokerURL := envOr("SIDECAR_URL", "http://sidecar:5000")
	weatherURL := envOr("WEATHER_API_URL", "http://weather-api:8080")
	agentAppID := os.Getenv("AGENT_APP_ID")

	spacingSeconds := 20
	if raw := os.Getenv("DECISION_RATE_LIMIT_SECONDS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			slog.Warn("Invalid DECISION_RATE_LIMIT_SECONDS, using default", "value", raw)
		} else {
			spacingSeconds = parsed
		}
	}

	log.Println("Configuring the decision backend")
	backend, decisionClient := llm.ResolveBackend()

	broker := identity.NewBrokerClient(brokerURL, agentAppID)
	weatherClient := weather.NewClient(weatherURL)
	limiter := ratelimit.New(time.Duration(spacingSeconds) * time.Second)
	dispatcher := dispatch.New(broker, weatherClient, backend, decisionClient, limiter)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	info := handlers.ServiceInfo{
		ServiceName: "Agent Identity Weather Agent",
		Backend:     backend,
		BrokerURL:   brokerURL,
		WeatherURL:  weatherURL,
		AgentAppID:  agentAppID,
	}
	if decisionClient != nil {
		info.Model = decisionClient.Model()
	}

	slog.Info("agent configuration",
		"broker_url", brokerURL,
		"weather_api_url", weatherURL,
		"agent_app_id", identity.TruncateID(agentAppID),
		"backend", backend.String(),
		"rate_limit_seconds", spacingSeconds)

	router := gin.Default()
	router.Use(otelgin.Middleware("agent-service"))

	routes.SetupRoutes(router, dispatcher, metrics, info)

	log.Println("Starting the agent server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
