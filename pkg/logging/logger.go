// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging configures structured logging for the Agent Identity
// services.
//
// Both services log JSON to stdout for container log collection. Every
// entry carries a "service" attribute so aggregated logs from the agent
// and the Weather API stay distinguishable.
//
// # Usage
//
//	logging.Setup("agent-service")
//	slog.Info("starting", "port", port)
//
// The minimum level comes from the LOG_LEVEL environment variable
// ("debug", "info", "warn", "error"); unset or unrecognized values mean
// info.
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers must
// ensure tokens and secrets are not logged:
//
//	// BAD: logs the bearer token
//	slog.Info("token fetched", "token", token)
//
//	// GOOD: log metadata only
//	slog.Info("token fetched", "token_len", len(token))
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog.Level. Matching is
// case-insensitive; anything unrecognized falls back to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs the process-wide default logger: JSON to stdout, level
// from LOG_LEVEL, tagged with the given service name. It returns the
// logger for callers that prefer passing it explicitly.
func Setup(service string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(os.Getenv("LOG_LEVEL")),
	})
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}
