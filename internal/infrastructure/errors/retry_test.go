package errors

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        false,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTransaction,
			ErrCodeBusy,
		},
	}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return New("op", fmt.Errorf("database is locked"), ErrCodeBusy)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return New("op", fmt.Errorf("no such script"), ErrCodeNotFound)
	})

	if err == nil {
		t.Fatal("Expected error for non-retryable failure")
	}
	if attempts != 1 {
		t.Errorf("Non-retryable errors must not be retried, got %d attempts", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return New("op", fmt.Errorf("still locked"), ErrCodeBusy)
	})

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryUnclassifiedErrorsNotRetried(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return fmt.Errorf("plain error")
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Unclassified errors must not be retried, got %d attempts", attempts)
	}
}

func TestWithRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := fastRetryConfig()
	config.InitialDelay = time.Second
	config.MaxDelay = time.Second

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- WithRetry(ctx, config, func() error {
			attempts++
			return New("op", fmt.Errorf("locked"), ErrCodeBusy)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Expected cancellation error")
		}
		if attempts != 1 {
			t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WithRetry did not return after context cancellation")
	}
}

func TestWithRetryNilConfigUsesDefaults(t *testing.T) {
	err := WithRetry(context.Background(), nil, func() error { return nil })
	if err != nil {
		t.Errorf("Expected success with nil config, got %v", err)
	}
}

func TestCalculateDelayBackoffAndCap(t *testing.T) {
	config := &RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		Jitter:        false,
	}

	if d := calculateDelay(0, config); d != 100*time.Millisecond {
		t.Errorf("attempt 0: got %v, want 100ms", d)
	}
	if d := calculateDelay(1, config); d != 200*time.Millisecond {
		t.Errorf("attempt 1: got %v, want 200ms", d)
	}
	if d := calculateDelay(10, config); d != time.Second {
		t.Errorf("attempt 10: got %v, want the max delay cap", d)
	}
}

func TestCalculateDelayJitterBounded(t *testing.T) {
	config := &RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}

	for i := 0; i < 50; i++ {
		d := calculateDelay(0, config)
		if d < 100*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 125ms]", d)
		}
	}
}
