// Package retry retries transient generation-provider failures with
// exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"syscall"
	"time"

	"drafty-relay/internal/observability/logging"
)

// Policy controls how often and how patiently a call is retried.
type Policy struct {
	// Attempts is the total number of calls, the first one included.
	Attempts int

	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	// Jitter adds up to this fraction of the delay at random (0 to 1).
	Jitter float64
}

// ForProvider returns the policy for provider calls made while a relay
// request waits. Delays stay short so every attempt fits the call timeout.
func ForProvider(attempts int) Policy {
	return Policy{
		Attempts:   max(attempts, 1),
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Backoff returns the wait before retry number n (1 for the first retry),
// without jitter.
func (p Policy) Backoff(n int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < n; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return min(time.Duration(d), p.MaxDelay)
}

func (p Policy) jittered(d time.Duration) time.Duration {
	j := min(p.Jitter, 1.0)
	if j <= 0 || d <= 0 {
		return d
	}
	// #nosec G404 -- jitter does not need cryptographic randomness
	return d + time.Duration(rand.Float64()*j*float64(d))
}

// Do calls fn until it succeeds, returns an error IsRetryable rejects, or
// the attempts run out. Waiting stops early when ctx is done.
func Do(ctx context.Context, p Policy, fn func() error) error {
	logger := logging.FromContext(ctx)
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				logger.Info("call succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := p.jittered(p.Backoff(attempt))
		logger.Warn("call failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", errors.Join(ctx.Err(), err))
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}

// IsRetryable reports whether err is a transient failure: a network
// timeout, a refused or reset connection, or status 408, 429 or 5xx.
// Context cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch code := statusErr.StatusCode; {
		case code >= 500 && code < 600:
			return true
		case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
			return true
		}
	}
	return false
}

// StatusError is a provider API failure carrying its HTTP status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
