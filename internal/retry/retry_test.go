package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestDoStopsOnSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond}

	calls := 0
	attempts, err := p.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 2 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 2 || calls != 2 {
		t.Errorf("attempts = %d, calls = %d, want 2", attempts, calls)
	}
}

func TestDoExhaustsAttemptsWithoutTrailingPause(t *testing.T) {
	var pauses []int
	p := Policy{
		MaxAttempts: 3,
		Delay:       5 * time.Millisecond,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			pauses = append(pauses, attempt)
			if wait != 5*time.Millisecond {
				t.Errorf("wait = %s, want 5ms", wait)
			}
		},
	}

	start := time.Now()
	attempts, err := p.Do(context.Background(), func(int) error { return errTransient })
	elapsed := time.Since(start)

	if !errors.Is(err, errTransient) {
		t.Fatalf("err = %v, want errTransient", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(pauses) != 2 || pauses[0] != 1 || pauses[1] != 2 {
		t.Errorf("pauses after attempts %v, want [1 2]", pauses)
	}
	if elapsed < 10*time.Millisecond {
		t.Errorf("elapsed = %s, want at least two pauses", elapsed)
	}
}

func TestDoNonRetryable(t *testing.T) {
	errFatal := errors.New("fatal")
	p := Policy{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, errFatal) },
	}

	attempts, err := p.Do(context.Background(), func(int) error { return errFatal })
	if !errors.Is(err, errFatal) {
		t.Fatalf("err = %v, want errFatal", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	attempts, _ := Policy{}.Do(context.Background(), func(int) error {
		calls++
		return errTransient
	})
	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1", calls, attempts)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 3, Delay: time.Hour}

	attempts, err := p.Do(ctx, func(int) error {
		cancel()
		return errTransient
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
