package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(maxRetries int) *RetryPolicy {
	return NewRetryPolicy(RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		Multiplier:     2.0,
	})
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastRetry(3).Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := fastRetry(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastRetry(2).Do(context.Background(), func() error {
		calls++
		return errors.New("persistent")
	})
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 3, calls, "initial attempt plus MaxRetries retries")
}

func TestRetry_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := NewRetryPolicy(RetryConfig{
		MaxRetries:     5,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
		Multiplier:     2.0,
	}).Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff must stop retries")
}

func TestRetry_BackoffGrowsAndCaps(t *testing.T) {
	rp := NewRetryPolicy(RetryConfig{
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     40 * time.Millisecond,
		Multiplier:     2.0,
	})

	assert.Equal(t, 10*time.Millisecond, rp.Backoff(0))
	assert.Equal(t, 20*time.Millisecond, rp.Backoff(1))
	assert.Equal(t, 40*time.Millisecond, rp.Backoff(2))
	assert.Equal(t, 40*time.Millisecond, rp.Backoff(5), "backoff must cap at MaxBackoff")
}

func TestRetry_JitterStaysWithinBound(t *testing.T) {
	rp := NewRetryPolicy(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	})

	for i := 0; i < 50; i++ {
		b := rp.Backoff(0)
		assert.GreaterOrEqual(t, b, 100*time.Millisecond)
		assert.LessOrEqual(t, b, 125*time.Millisecond)
	}
}

func TestRetry_ZeroConfigGetsDefaults(t *testing.T) {
	rp := NewRetryPolicy(RetryConfig{})
	assert.Equal(t, 50*time.Millisecond, rp.Backoff(0))
}
