package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/findex/internal/domain"
)

func newTestBreaker(cooldown time.Duration) *Breaker {
	return NewBreaker("dep", BreakerConfig{FailureThreshold: 3, Cooldown: cooldown})
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := newTestBreaker(time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatalf("state = %v after 2 failures, want closed", b.State())
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %v after 3 failures, want open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("Allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed: success must reset the streak", b.State())
	}
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	b := newTestBreaker(10 * time.Millisecond)
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	time.Sleep(20 * time.Millisecond)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v after cooldown, want half_open", b.State())
	}

	if err := b.Allow(); err != nil {
		t.Fatalf("first probe rejected: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("second concurrent probe allowed, err = %v", err)
	}
}

func TestBreakerProbeSuccessCloses(t *testing.T) {
	b := newTestBreaker(10 * time.Millisecond)
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	time.Sleep(20 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	b.RecordSuccess()

	if b.State() != StateClosed {
		t.Fatalf("state = %v after probe success, want closed", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after close = %v", err)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := newTestBreaker(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	time.Sleep(60 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Fatalf("state = %v after probe failure, want open", b.State())
	}
	// Cooldown restarted; calls stay rejected.
	if err := b.Allow(); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("Allow() = %v, want ErrCircuitOpen", err)
	}
}
