// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dispatch decides, per user query, how the weather tool gets
// invoked: directly via the deterministic city extractor, or through an
// LLM-mediated decision loop with a deterministic fallback when the loop
// never calls the tool.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/AgentIdentity/services/agent/trace"
	"github.com/AleutianAI/AgentIdentity/services/llm"
	"github.com/AleutianAI/AgentIdentity/services/weather"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.agent.dispatch")

// TokenSource mints a bearer token for the configured agent identity.
type TokenSource interface {
	FetchToken(ctx context.Context) (string, error)
}

// WeatherFetcher retrieves an observation from the protected resource.
type WeatherFetcher interface {
	Fetch(ctx context.Context, city, token string) (*weather.Observation, error)
}

// Limiter spaces out decision-backend calls. Satisfied by ratelimit.Limiter.
type Limiter interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Result is the displayable outcome of one dispatched query. Errors never
// escape the dispatcher; they arrive here as Response text with Success
// false, so the conversational surface always has something to show.
type Result struct {
	Response     string
	AgentType    string
	Success      bool
	ToolCalled   bool
	FallbackUsed bool
}

// Dispatcher owns the tool chain (broker then resource) and the optional
// decision backend resolved at startup.
type Dispatcher struct {
	broker   TokenSource
	weather  WeatherFetcher
	backend  llm.Backend
	decision llm.DecisionClient
	limiter  Limiter
}

// New constructs a Dispatcher. decision may be nil when backend is
// BackendUnavailable; limiter is required only when a backend is set.
func New(broker TokenSource, fetcher WeatherFetcher, backend llm.Backend,
	decision llm.DecisionClient, limiter Limiter) *Dispatcher {
	return &Dispatcher{
		broker:   broker,
		weather:  fetcher,
		backend:  backend,
		decision: decision,
		limiter:  limiter,
	}
}

// Backend returns the decision capability resolved at startup.
func (d *Dispatcher) Backend() llm.Backend { return d.backend }

// Model returns the decision backend's model identifier, or "" without one.
func (d *Dispatcher) Model() string {
	if d.decision == nil {
		return ""
	}
	return d.decision.Model()
}

// Handle processes one user query. useLLM selects the decision-loop path
// when a backend is available; otherwise the query is dispatched directly.
func (d *Dispatcher) Handle(ctx context.Context, query string, useLLM bool) Result {
	ctx, span := tracer.Start(ctx, "Dispatcher.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("dispatch.use_llm", useLLM),
		attribute.String("dispatch.backend", d.backend.String()),
	)

	if useLLM && d.backend != llm.BackendUnavailable {
		return d.handleWithLoop(ctx, query)
	}
	return d.handleDirect(ctx, query)
}

// handleDirect skips the decision loop entirely: extract a city, run the
// tool chain once.
func (d *Dispatcher) handleDirect(ctx context.Context, query string) Result {
	rec := trace.FromContext(ctx)
	rec.Append("0. START", "Processing query (no LLM): "+query, nil)

	city := ExtractCity(query)
	rec.Append("1. DIRECT CALL", "Calling weather tool directly for: "+city, nil)

	text := d.runTool(ctx, city)
	rec.Append("5. COMPLETE", "Query processed (direct mode)", nil)

	return Result{
		Response:   "Here's what I found:\n\n" + text,
		AgentType:  "direct",
		Success:    true,
		ToolCalled: true,
	}
}

// handleWithLoop runs the LLM decision loop and applies the deterministic
// fallback when the loop answers without ever invoking the tool.
func (d *Dispatcher) handleWithLoop(ctx context.Context, query string) Result {
	ctx, span := tracer.Start(ctx, "Dispatcher.handleWithLoop")
	defer span.End()

	rec := trace.FromContext(ctx)
	rec.Append("0. START", "User query: "+query, nil)

	release, err := d.limiter.Acquire(ctx)
	if err != nil {
		rec.Append("ERROR", "Request canceled while waiting for the decision backend: "+err.Error(), nil)
		return Result{Response: "Request canceled: " + err.Error(), AgentType: d.backend.String()}
	}
	defer release()

	rec.Append("0. BACKEND", fmt.Sprintf("Sending query to decision backend (mode: %s, model: %s)",
		d.backend, d.decision.Model()), nil)

	tool := &recordingTool{dispatcher: d}
	loopResult, err := d.decision.Run(ctx, query, tool)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("decision loop failed", "error", err)
		rec.Append("ERROR", "Decision loop failed: "+err.Error(), nil)
		return Result{
			Response:   "Agent error: " + err.Error(),
			AgentType:  d.backend.String(),
			ToolCalled: tool.invoked(),
		}
	}

	answer := loopResult.Answer
	fallback := false

	switch {
	case tool.invoked():
		// The loop used the tool; its own answer stands unmodified.
	case hasWeatherKeyword(query):
		// The loop answered a weather question from its own knowledge.
		// Override with directly-fetched data; the trace keeps both paths
		// visible.
		fallback = true
		rec.Append("1. FALLBACK", "Model answered without calling the weather tool - extracting city and calling it directly", nil)
		city := ExtractCity(query)
		rec.Append("2. CITY DETECTED", "Extracted city: "+city, nil)
		answer = d.runTool(ctx, city)
	default:
		rec.Append("1. NO TOOL", "Model responded without calling the weather tool", nil)
	}

	rec.Append("5. COMPLETE", "Decision loop finished processing", nil)
	return Result{
		Response:     answer,
		AgentType:    d.backend.String(),
		Success:      true,
		ToolCalled:   tool.invoked() || fallback,
		FallbackUsed: fallback,
	}
}

// runTool executes the token-relay tool chain once: fetch a token from the
// broker, call the Weather API with it, format the observation. Every
// failure comes back as displayable text, never as an error.
func (d *Dispatcher) runTool(ctx context.Context, city string) string {
	ctx, span := tracer.Start(ctx, "Dispatcher.runTool")
	defer span.End()
	span.SetAttributes(attribute.String("weather.city", city))

	rec := trace.FromContext(ctx)
	rec.Append("1. TOOL CALLED", "Weather tool called for city: "+city, nil)

	token, err := d.broker.FetchToken(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "Error: Could not authenticate with Agent Identity. The token broker may not be running."
	}

	obs, err := d.weather.Fetch(ctx, city, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Sprintf("Error: Could not retrieve weather data for %s. The API may have rejected the token.", city)
	}

	text := obs.Format()
	rec.Append("4. TOOL RESULT", "Weather data retrieved", map[string]any{"result": text})
	return text
}

// recordingTool exposes the tool chain to the decision loop and remembers
// whether, and with what city, the loop actually invoked it.
type recordingTool struct {
	dispatcher *Dispatcher

	mu     sync.Mutex
	called bool
	city   string
}

func (t *recordingTool) Name() string { return "get_weather" }

func (t *recordingTool) Description() string {
	return "Get the current weather for a city. Use this tool whenever the user asks about " +
		"weather, temperature, conditions, or forecast. The input is the city name, " +
		"e.g. \"Seattle\", \"New York\", \"Tokyo\"."
}

func (t *recordingTool) Call(ctx context.Context, city string) (string, error) {
	t.mu.Lock()
	t.called = true
	t.city = city
	t.mu.Unlock()
	return t.dispatcher.runTool(ctx, city), nil
}

func (t *recordingTool) invoked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.called
}
