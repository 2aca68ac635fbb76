package retrylimit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

type httpErr struct {
	code int
}

func (e *httpErr) Error() string   { return http.StatusText(e.code) }
func (e *httpErr) StatusCode() int { return e.code }

func TestAdaptiveLimiter_Adjusts(t *testing.T) {
	lim := NewAdaptiveLimiter(8, 1, 10, 2, 0.5)

	lim.Success()
	if got := lim.CurrentLimit(); got != 10 {
		t.Fatalf("after success: limit = %.1f, want 10", got)
	}

	// Already at max: another success must not exceed it.
	lim.Success()
	if got := lim.CurrentLimit(); got != 10 {
		t.Fatalf("at max: limit = %.1f, want 10", got)
	}

	lim.RateLimited()
	if got := lim.CurrentLimit(); got != 5 {
		t.Fatalf("after overload: limit = %.1f, want 5", got)
	}

	for i := 0; i < 10; i++ {
		lim.RateLimited()
	}
	if got := lim.CurrentLimit(); got != 1 {
		t.Fatalf("overload floor: limit = %.1f, want 1", got)
	}
}

func TestAdaptiveLimiter_SuccessHeldBackAfterOverload(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 10, 2, 0.5)

	lim.RateLimited()
	cut := lim.CurrentLimit()
	lim.Success()
	if got := lim.CurrentLimit(); got != cut {
		t.Fatalf("limit = %.1f right after an overload, want it held at %.1f", got, cut)
	}
}

func TestWithRetryMax_RetriesUntilSuccess(t *testing.T) {
	lim := NewAdaptiveLimiter(100, 1, 100, 1, 0.5)

	attempts := 0
	err := WithRetryMax(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &httpErr{code: http.StatusTooManyRequests}
		}
		return nil
	}, lim, 5)

	if err != nil {
		t.Fatalf("WithRetryMax returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if lim.CurrentLimit() >= 100 {
		t.Fatalf("limit = %.1f, want it cut by the 429s", lim.CurrentLimit())
	}
}

func TestWithRetryMax_Exhausts(t *testing.T) {
	lim := NewAdaptiveLimiter(100, 1, 100, 1, 0.5)

	attempts := 0
	err := WithRetryMax(context.Background(), func() error {
		attempts++
		return &httpErr{code: http.StatusTooManyRequests}
	}, lim, 3)

	if err == nil || !strings.Contains(err.Error(), "max attempts") {
		t.Fatalf("err = %v, want max-attempts failure", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryMax_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetryMax(ctx, func() error {
		t.Fatal("fn must not run with a dead context")
		return nil
	}, nil, 3)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewAdaptiveLimiter_Floors(t *testing.T) {
	lim := NewAdaptiveLimiter(0, 0, 10, 1, 0.5)
	if got := lim.CurrentLimit(); got != 1 {
		t.Fatalf("limit = %.1f, want the floor of 1", got)
	}
}
