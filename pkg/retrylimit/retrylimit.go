// Package retrylimit paces calls against an API that pushes back. The
// limiter raises its rate while calls succeed and cuts it when the server
// signals overload; WithRetryMax wraps a single call with the limiter and
// bounded, backed-off retry.
package retrylimit

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AdaptiveLimiter adjusts its requests-per-second rate from call outcomes:
// up a step on success, down by a factor on overload. Safe for concurrent
// use.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
}

// NewAdaptiveLimiter creates a limiter starting at initial requests per
// second, clamped to [min, max]. stepUp is added after a success, stepDown
// multiplies the rate after an overload (0.5 halves it).
func NewAdaptiveLimiter(initial, min, max rate.Limit, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if min < 1 {
		min = 1
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a token is available or ctx ends.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return a.limiter.Wait(ctx)
}

// Success raises the rate one step, unless an overload was seen in the last
// ten seconds.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > 10*time.Second {
		a.adjustLimit(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited cuts the rate after the server signaled overload.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjustLimit(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

// adjustLimit moves the limiter to newLimit, clamped to [minLimit, maxLimit].
// Callers must hold a.mu.
func (a *AdaptiveLimiter) adjustLimit(newLimit rate.Limit) {
	if newLimit > a.maxLimit {
		newLimit = a.maxLimit
	} else if newLimit < a.minLimit {
		newLimit = a.minLimit
	}
	if newLimit != a.limiter.Limit() {
		a.limiter.SetLimit(newLimit)
		a.limiter.SetBurst(burstFor(newLimit))
	}
}

func burstFor(limit rate.Limit) int {
	if limit < 1 {
		return 1
	}
	return int(limit)
}

// HTTPError is implemented by errors that carry an HTTP status code; 429
// and 5xx responses feed the limiter.
type HTTPError interface {
	error
	StatusCode() int
}

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
	rateLimitDelay    = 100 * time.Millisecond
)

// WithRetryMax runs fn up to maxAttempts times, pacing every attempt
// through lim. A 429 cuts the limiter and retries after a short fixed
// pause; any other failure retries with jittered exponential backoff (5xx
// also cuts the limiter). Returns nil on the first success, the context
// error if ctx ends, or an error once maxAttempts is exhausted.
func WithRetryMax(ctx context.Context, fn func() error, lim *AdaptiveLimiter, maxAttempts int) error {
	delay := initialRetryDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
				if attempt > 1 {
					log.Printf("[INFO] Request succeeded after %d attempts, limiter at %.2f rps", attempt, lim.CurrentLimit())
				}
			}
			return nil
		}

		if isRateLimitError(err) {
			if lim != nil {
				lim.RateLimited()
				log.Printf("[WARN] Rate limited (attempt %d), limiter cut to %.2f rps", attempt, lim.CurrentLimit())
			}
			if sErr := sleepCtx(ctx, rateLimitDelay); sErr != nil {
				return sErr
			}
			continue
		}

		if isServerError(err) && lim != nil {
			lim.RateLimited()
		}
		log.Printf("[WARN] Request failed (attempt %d): %v, retrying in %v", attempt, err, delay)

		if sErr := sleepCtx(ctx, addJitter(delay)); sErr != nil {
			return sErr
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	return fmt.Errorf("max attempts (%d) exceeded", maxAttempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// addJitter adds up to 25% of delay so retries from many guilds spread out.
func addJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}

func isRateLimitError(err error) bool {
	if httpErr, ok := err.(HTTPError); ok {
		return httpErr.StatusCode() == http.StatusTooManyRequests
	}
	return false
}

func isServerError(err error) bool {
	if httpErr, ok := err.(HTTPError); ok {
		code := httpErr.StatusCode()
		return code >= 500 && code < 600
	}
	return false
}
