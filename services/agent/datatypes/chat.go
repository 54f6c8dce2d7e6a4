// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the request/response shapes of the agent API.
package datatypes

import "github.com/AleutianAI/AgentIdentity/services/agent/trace"

// ChatRequest is one user turn. UseLLM selects the decision-loop path when
// a backend is configured; it is ignored otherwise.
type ChatRequest struct {
	Message string `json:"message"`
	UseLLM  bool   `json:"use_llm"`
}

// ChatResponse carries the conversational answer plus the full token-flow
// trace for the current request. Debug is the ordered step list owned by
// exactly this request.
type ChatResponse struct {
	Response  string         `json:"response"`
	Debug     []trace.Record `json:"debug"`
	Success   bool           `json:"success"`
	AgentType string         `json:"agent_type"`
	RequestID string         `json:"request_id"`
}

// StatusResponse describes the agent's resolved capabilities for the UI
// status bar.
type StatusResponse struct {
	Backend      string `json:"backend"`
	Model        string `json:"model,omitempty"`
	BrokerURL    string `json:"broker_url"`
	WeatherURL   string `json:"weather_api_url"`
	AgentAppID   string `json:"agent_app_id"`
	LLMAvailable bool   `json:"llm_available"`
}
