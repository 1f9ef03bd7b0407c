package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	val, attempts, err := Retry(context.Background(), fastPolicy(3), func(_ context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 1, attempts)
}

func TestRetry_SuccessAfterTransientFailures(t *testing.T) {
	calls := 0
	val, attempts, err := Retry(context.Background(), fastPolicy(3), func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("busy"), 503)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var retried []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	_, attempts, err := Retry(context.Background(), p, func(_ context.Context) (int, error) {
		return 0, NewTransientError(errors.New("down"), 500)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	_, attempts, err := Retry(context.Background(), fastPolicy(5), func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
}

func TestRetry_CustomRetryable(t *testing.T) {
	p := fastPolicy(3)
	p.Retryable = func(err error) bool { return err.Error() == "again" }

	calls := 0
	err := Do(context.Background(), p, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("again")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_ContextCancelledStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 10, InitialBackoff: 20 * time.Millisecond, MaxBackoff: 50 * time.Millisecond}

	calls := 0
	err := Do(ctx, p, func(_ context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return NewTransientError(errors.New("fail"), 500)
	})
	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 2)
}

func TestPolicyBackoff(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(2))
	assert.Equal(t, time.Second, p.Backoff(10))
}

func TestPolicyBackoffJitterBounded(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2, JitterFraction: 0.5}
	for i := 0; i < 50; i++ {
		d := p.Backoff(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestNewPolicy(t *testing.T) {
	p := NewPolicy(5, 100, 2000)
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.InitialBackoff)
	assert.Equal(t, 2*time.Second, p.MaxBackoff)

	d := NewPolicy(0, 0, 0)
	assert.Equal(t, DefaultPolicy().MaxAttempts, d.MaxAttempts)
	assert.Equal(t, DefaultPolicy().InitialBackoff, d.InitialBackoff)
}

func TestPolicyDelay_HonoursRetryAfter(t *testing.T) {
	p := Policy{InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}

	throttled := &TransientError{Err: errors.New("slow down"), StatusCode: 429, RetryAfter: 300 * time.Millisecond}
	assert.Equal(t, 300*time.Millisecond, p.delay(0, throttled))

	throttled.RetryAfter = time.Minute
	assert.Equal(t, time.Second, p.delay(0, throttled))

	throttled.RetryAfter = time.Millisecond
	assert.Equal(t, 10*time.Millisecond, p.delay(0, throttled))

	assert.Equal(t, 20*time.Millisecond, p.delay(1, errors.New("down")))
}

func TestRetry_WaitsForRetryAfter(t *testing.T) {
	p := fastPolicy(2)
	p.MaxBackoff = time.Second

	calls := 0
	start := time.Now()
	err := Do(context.Background(), p, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return &TransientError{Err: errors.New("slow down"), StatusCode: 429, RetryAfter: 80 * time.Millisecond}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
