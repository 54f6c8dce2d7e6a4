// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trace records the ordered steps taken while servicing one chat
// request, for display in the token-flow panel of the UI.
//
// A Recorder belongs to exactly one request. It is created by the chat
// handler, carried down the call chain inside the request context, and read
// back once when the response is assembled. Nothing in this package is
// process-wide: two requests handled concurrently each see only their own
// records.
package trace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Record is one step of a request trace.
type Record struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Recorder accumulates Records for a single request.
//
// The zero value is not usable; create one with NewRecorder. A nil *Recorder
// is safe to call, so code paths that run outside a traced request (startup
// probes, tests) do not need presence checks.
type Recorder struct {
	mu      sync.Mutex
	id      string
	records []Record
}

// NewRecorder returns an empty Recorder with a fresh request ID.
func NewRecorder() *Recorder {
	return &Recorder{id: uuid.NewString()}
}

// ID returns the request ID assigned at creation.
func (r *Recorder) ID() string {
	if r == nil {
		return ""
	}
	return r.id
}

// Append adds one step to the trace. data may be nil.
func (r *Recorder) Append(step, message string, data any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.records = append(r.records, Record{Step: step, Message: message, Data: data})
	r.mu.Unlock()
	slog.Debug("trace step", "request_id", r.id, "step", step, "message", message)
}

// Records returns a snapshot of the steps appended so far, in order.
func (r *Recorder) Records() []Record {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

type ctxKey struct{}

// NewContext returns a context carrying the Recorder.
func NewContext(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the Recorder carried by ctx, or nil if there is none.
// The nil result is safe to use directly; see Recorder.
func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(ctxKey{}).(*Recorder)
	return r
}
