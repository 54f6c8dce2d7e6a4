// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trace

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_AppendPreservesOrder(t *testing.T) {
	rec := NewRecorder()
	rec.Append("2. TOKEN REQUEST", "Requesting token from broker", nil)
	rec.Append("3. WEATHER API", "Calling weather API", map[string]any{"city": "Dallas"})
	rec.Append("5. COMPLETE", "Done", nil)

	records := rec.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "2. TOKEN REQUEST", records[0].Step)
	assert.Equal(t, "3. WEATHER API", records[1].Step)
	assert.Equal(t, "5. COMPLETE", records[2].Step)
	assert.Equal(t, map[string]any{"city": "Dallas"}, records[1].Data)
}

func TestRecorder_RecordsReturnsSnapshot(t *testing.T) {
	rec := NewRecorder()
	rec.Append("1. FALLBACK", "first", nil)

	snap := rec.Records()
	rec.Append("5. COMPLETE", "second", nil)

	assert.Len(t, snap, 1, "earlier snapshot must not grow")
	assert.Len(t, rec.Records(), 2)
}

func TestRecorder_IsolatedPerRecorder(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()

	a.Append("2. TOKEN REQUEST", "from a", nil)
	b.Append("3. WEATHER API", "from b", nil)

	require.Len(t, a.Records(), 1)
	require.Len(t, b.Records(), 1)
	assert.Equal(t, "from a", a.Records()[0].Message)
	assert.Equal(t, "from b", b.Records()[0].Message)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestRecorder_ConcurrentAppend(t *testing.T) {
	rec := NewRecorder()

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				rec.Append("step", fmt.Sprintf("writer %d message %d", n, j), nil)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, rec.Records(), writers*perWriter)
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *Recorder

	assert.NotPanics(t, func() {
		rec.Append("ERROR", "nothing listening", nil)
	})
	assert.Nil(t, rec.Records())
	assert.Empty(t, rec.ID())
}

func TestContextRoundTrip(t *testing.T) {
	rec := NewRecorder()
	ctx := NewContext(context.Background(), rec)

	got := FromContext(ctx)
	require.Same(t, rec, got)

	got.Append("2. TOKEN REQUEST", "via context", nil)
	assert.Len(t, rec.Records(), 1)
}

func TestFromContext_MissingRecorder(t *testing.T) {
	rec := FromContext(context.Background())
	assert.Nil(t, rec)

	// The nil recorder from a bare context must be usable as-is.
	assert.NotPanics(t, func() {
		rec.Append("3. WEATHER API", "untraced path", nil)
	})
}
