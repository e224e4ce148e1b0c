package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var retried []int

	p := Fixed(3, time.Millisecond)
	p.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Fixed(2, 0), func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errFlaky)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0

	p := Fixed(5, 0)
	p.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, permanent, err)
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	p := Fixed(3, time.Hour)
	p.OnRetry = func(int, error) { cancel() }

	err := Do(ctx, p, func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoValue_ReturnsResult(t *testing.T) {
	got, err := DoValue(context.Background(), Fixed(1, 0), func(ctx context.Context) (string, error) {
		return "<html></html>", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", got)
}

func TestPolicy_DelayFor(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{name: "fixed", policy: Fixed(3, 5*time.Second), attempt: 3, want: 5 * time.Second},
		{name: "exponential", policy: Policy{Delay: time.Second, Backoff: 2}, attempt: 3, want: 4 * time.Second},
		{name: "capped", policy: Policy{Delay: time.Second, Backoff: 10, MaxDelay: 30 * time.Second}, attempt: 4, want: 30 * time.Second},
		{name: "backoff below one is fixed", policy: Policy{Delay: time.Second, Backoff: 0.5}, attempt: 4, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.delayFor(tt.attempt))
		})
	}
}
