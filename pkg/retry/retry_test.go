package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0, // No jitter for predictable testing
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt yet"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			assert.Equal(t, test.expected, backoff.NextDelay(test.attempt))
		})
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 3 * time.Second}
	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
	assert.Equal(t, 3*time.Second, backoff.NextDelay(1))
	assert.Equal(t, 3*time.Second, backoff.NextDelay(4))
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := Do(context.Background(), op, Fixed(5, time.Millisecond, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	persistent := errors.New("persistent error")
	op := func(ctx context.Context) error {
		attempts++
		return persistent
	}

	log := logger.NewTestLogger()
	err := Do(context.Background(), op, Fixed(3, time.Millisecond, log))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, persistent)
	assert.Equal(t, 3, attempts)
	// Two waits between three attempts, none after the last one
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
	assert.True(t, log.HasMessage("max retry attempts exceeded"))
}

func TestRetryDoesNotWaitAfterFinalAttempt(t *testing.T) {
	start := time.Now()
	err := Do(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	}, Fixed(1, time.Hour, nil))

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	configErr := errs.New(errs.ErrorTypeConfig, "bad table name", nil)

	op := func(ctx context.Context) error {
		attempts++
		return configErr
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
	}

	err := Do(context.Background(), op, cfg)
	assert.Equal(t, configErr, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	err := Do(ctx, op, Fixed(5, 100*time.Millisecond, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	cfg := Fixed(3, 0, nil)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}

	_ = Do(context.Background(), func(ctx context.Context) error {
		return errors.New("nope")
	}, cfg)

	assert.Equal(t, []int{1, 2}, seen)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}

	result, err := DoWithResult(context.Background(), op, Fixed(3, time.Millisecond, nil))
	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeDatabase, "query", nil)))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeDecode, "bad jpeg", nil)))
	assert.True(t, DefaultRetryIf(errors.New("unknown")))
}
