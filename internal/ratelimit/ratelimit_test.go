package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRateLimiter_FirstWaitIsImmediate(t *testing.T) {
	r := NewFixed(time.Hour)

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimpleRateLimiter_SpacesActions(t *testing.T) {
	r := NewFixed(30 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx))
	start := time.Now()
	require.NoError(t, r.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestSimpleRateLimiter_ContextCancel(t *testing.T) {
	r := NewFixed(time.Hour)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
}

func TestSimpleRateLimiter_CalculateDelay(t *testing.T) {
	tests := []struct {
		name     string
		min, max time.Duration
	}{
		{name: "fixed", min: time.Second, max: time.Second},
		{name: "range", min: time.Second, max: 3 * time.Second},
		{name: "inverted range falls back to min", min: 2 * time.Second, max: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSimpleRateLimiter(tt.min, tt.max)
			for i := 0; i < 20; i++ {
				d := r.calculateDelay()
				assert.GreaterOrEqual(t, d, tt.min)
				if tt.max > tt.min {
					assert.Less(t, d, tt.max)
				}
			}
		})
	}
}

func TestAdaptiveRateLimiter_BacksOffAndRelaxes(t *testing.T) {
	a := NewAdaptiveRateLimiter(time.Second, time.Second)

	a.RecordError()
	a.RecordError()
	min, _ := a.Delays()
	assert.Equal(t, time.Second, min, "two errors do not trigger backoff")

	a.RecordError()
	min, max := a.Delays()
	assert.Equal(t, 1500*time.Millisecond, min)
	assert.Equal(t, 1500*time.Millisecond, max)

	for i := 0; i < 6*10; i++ {
		a.RecordSuccess()
	}
	min, _ = a.Delays()
	assert.Equal(t, time.Second, min, "never relaxes below the configured floor")
}

func TestAdaptiveRateLimiter_RelaxesBothBounds(t *testing.T) {
	tests := []struct {
		name     string
		minDelay time.Duration
		maxDelay time.Duration
		bursts   int
	}{
		{name: "fixed delay, one burst", minDelay: time.Second, maxDelay: time.Second, bursts: 1},
		{name: "fixed delay, repeated bursts", minDelay: time.Second, maxDelay: time.Second, bursts: 10},
		{name: "jittered delay", minDelay: time.Second, maxDelay: 2 * time.Second, bursts: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdaptiveRateLimiter(tt.minDelay, tt.maxDelay)

			for range tt.bursts {
				for range 3 {
					a.RecordError()
				}
				backedMin, backedMax := a.Delays()
				assert.Greater(t, backedMin, tt.minDelay)
				assert.GreaterOrEqual(t, backedMax, backedMin)

				for range 600 {
					a.RecordSuccess()
					lo, hi := a.Delays()
					require.GreaterOrEqual(t, hi, lo)
				}
			}

			min, max := a.Delays()
			assert.Equal(t, tt.minDelay, min)
			assert.Equal(t, tt.maxDelay, max)
		})
	}
}

func TestAdaptiveRateLimiter_Interfaces(t *testing.T) {
	var limiter RateLimiter = NewAdaptiveRateLimiter(time.Second, time.Second)
	_, ok := limiter.(Feedback)
	assert.True(t, ok)

	_, ok = RateLimiter(NewFixed(time.Second)).(Feedback)
	assert.False(t, ok)
}
