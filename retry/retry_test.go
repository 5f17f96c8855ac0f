package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first try", func(t *testing.T) {
		var calls int
		err := Do(ctx, fastConfig(), func(ctx context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("retries transient errors", func(t *testing.T) {
		var calls int
		err := Do(ctx, fastConfig(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("exhausts retries", func(t *testing.T) {
		cause := errors.New("always failing")
		var calls int
		err := Do(ctx, fastConfig(), func(ctx context.Context) error {
			calls++
			return cause
		})
		if !errors.Is(err, ErrMaxRetries) {
			t.Errorf("expected ErrMaxRetries, got %v", err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("expected cause preserved, got %v", err)
		}
		if calls != 4 {
			t.Errorf("expected 4 calls (1 + 3 retries), got %d", calls)
		}
	})

	t.Run("stops on non-retryable", func(t *testing.T) {
		cfg := fastConfig()
		permanent := errors.New("permanent")
		cfg.IsRetryable = func(err error) bool { return !errors.Is(err, permanent) }

		var calls int
		err := Do(ctx, cfg, func(ctx context.Context) error {
			calls++
			return permanent
		})
		if !errors.Is(err, ErrNotRetryable) {
			t.Errorf("expected ErrNotRetryable, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		cfg := fastConfig()
		cfg.InitialBackoff = time.Minute

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := Do(cancelCtx, cfg, func(ctx context.Context) error {
			return errors.New("transient")
		})
		if !errors.Is(err, ErrContextCanceled) {
			t.Errorf("expected ErrContextCanceled, got %v", err)
		}
	})

	t.Run("zero retries executes once", func(t *testing.T) {
		cfg := fastConfig()
		cfg.MaxRetries = 0

		var calls int
		Do(ctx, cfg, func(ctx context.Context) error {
			calls++
			return errors.New("fail")
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}

func TestDoWithResult(t *testing.T) {
	ctx := context.Background()

	var calls int
	got, err := DoWithResult(ctx, fastConfig(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "value", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "value" {
		t.Errorf("expected value, got %q", got)
	}
}

func TestRetryError(t *testing.T) {
	cause := errors.New("boom")
	err := &RetryError{Cause: cause, Attempts: 4, Err: ErrMaxRetries}

	if !errors.Is(err, ErrMaxRetries) {
		t.Error("expected Is to match sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("expected Is to match cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return cause")
	}
}

func TestDefaultIsRetryable(t *testing.T) {
	if DefaultIsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if DefaultIsRetryable(ErrNotRetryable) {
		t.Error("ErrNotRetryable should not be retryable")
	}
	if !DefaultIsRetryable(errors.New("unknown")) {
		t.Error("unknown errors default to retryable")
	}
}

func TestBackoffBounds(t *testing.T) {
	cfg := applyDefaults(Config{
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     40 * time.Millisecond,
		Multiplier:     2.0,
		Jitter:         0,
	})

	for attempt, want := range []time.Duration{10, 20, 40, 40, 40} {
		got := backoffFor(cfg, attempt)
		if got != want*time.Millisecond {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want*time.Millisecond, got)
		}
	}
}
