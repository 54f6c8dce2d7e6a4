package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_FirstCallDoesNotWait(t *testing.T) {
	l := New(time.Second)

	start := time.Now()
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()

	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiter_SequentialSpacing(t *testing.T) {
	const spacing = 80 * time.Millisecond
	l := New(spacing)

	var starts []time.Time
	for i := 0; i < 3; i++ {
		release, err := l.Acquire(context.Background())
		require.NoError(t, err)
		starts = append(starts, time.Now())
		release()
	}

	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, spacing-5*time.Millisecond,
			"calls %d and %d too close together", i-1, i)
	}
}

func TestLimiter_CompletionAnchored(t *testing.T) {
	// The gap is measured from release, not from Acquire: a slow call
	// pushes the next start out by its own duration plus the spacing.
	const spacing = 60 * time.Millisecond
	const callDuration = 50 * time.Millisecond
	l := New(spacing)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	firstStart := time.Now()
	time.Sleep(callDuration)
	release()

	release2, err := l.Acquire(context.Background())
	require.NoError(t, err)
	secondStart := time.Now()
	release2()

	assert.GreaterOrEqual(t, secondStart.Sub(firstStart), callDuration+spacing-5*time.Millisecond)
}

func TestLimiter_ConcurrentCallsSerialize(t *testing.T) {
	// Without single-owner serialization, concurrent callers can both read
	// a stale timestamp and proceed together. Here every start must still
	// respect the spacing.
	const spacing = 40 * time.Millisecond
	const workers = 4
	l := New(spacing)

	var mu sync.Mutex
	var starts []time.Time
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background())
			if err != nil {
				return
			}
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	require.Len(t, starts, workers)
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, spacing-5*time.Millisecond,
			"concurrent calls %d and %d raced past the limiter", i-1, i)
	}
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	l := New(5 * time.Second)

	// Prime the timestamp so the next Acquire has to wait.
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = l.Acquire(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiter_ReleaseIdempotent(t *testing.T) {
	l := New(time.Millisecond)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()
	assert.NotPanics(t, release)

	// The limiter must still be usable afterwards.
	release2, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}
