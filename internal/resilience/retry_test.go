package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/findex/internal/domain"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(3), func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("flaky: %w", domain.ErrNetwork)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(_ context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("bad key: %w", domain.ErrAuthentication)
	})
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1: auth errors must not be retried", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(_ context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("down: %w", domain.ErrTimeout)
	})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, Policy{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}, func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, fmt.Errorf("down: %w", domain.ErrNetwork)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 after cancellation", calls)
	}
}

func TestJitteredStaysNearDelay(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		j := jittered(d, 0.2)
		if j < 90*time.Millisecond || j > 110*time.Millisecond {
			t.Fatalf("jittered = %v, want within ±10%% of %v", j, d)
		}
	}
	if jittered(d, 0) != d {
		t.Fatal("zero jitter must return the delay unchanged")
	}
}
