package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		Attempts:   attempts,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDo(t *testing.T) {
	tests := []struct {
		name         string
		attempts     int
		errs         []error
		wantCalls    int
		wantErr      bool
		wantErrMatch error
	}{
		{name: "first call succeeds", attempts: 3, errs: nil, wantCalls: 1},
		{
			name:      "succeeds after transient failures",
			attempts:  3,
			errs:      []error{&StatusError{StatusCode: 503}, &StatusError{StatusCode: 429}},
			wantCalls: 3,
		},
		{
			name:         "gives up after all attempts",
			attempts:     2,
			errs:         []error{&StatusError{StatusCode: 500}, &StatusError{StatusCode: 502}, nil},
			wantCalls:    2,
			wantErr:      true,
			wantErrMatch: &StatusError{},
		},
		{
			name:      "client error is not retried",
			attempts:  3,
			errs:      []error{&StatusError{StatusCode: 401}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "zero attempts still calls once",
			attempts:  0,
			errs:      []error{&StatusError{StatusCode: 500}},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastPolicy(tt.attempts), func() error {
				calls++
				if calls <= len(tt.errs) {
					return tt.errs[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErrMatch != nil {
				var statusErr *StatusError
				assert.ErrorAs(t, err, &statusErr)
			}
		})
	}
}

func TestDo_ContextCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

	calls := 0
	err := Do(ctx, p, func() error {
		calls++
		cancel()
		return &StatusError{StatusCode: 503}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 800*time.Millisecond, p.Backoff(4))
	assert.Equal(t, time.Second, p.Backoff(5))
	assert.Equal(t, time.Second, p.Backoff(50))
}

func TestPolicy_Jitter(t *testing.T) {
	p := Policy{Jitter: 0.5}
	base := 100 * time.Millisecond

	for range 100 {
		d := p.jittered(base)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
	assert.Equal(t, base, Policy{}.jittered(base))
}

func TestForProvider(t *testing.T) {
	p := ForProvider(3)
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 250*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 2*time.Second, p.MaxDelay)

	assert.Equal(t, 1, ForProvider(0).Attempts)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"net timeout", timeoutErr{}, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"500", &StatusError{StatusCode: 500}, true},
		{"503 wrapped", fmt.Errorf("openai: %w", &StatusError{StatusCode: 503}), true},
		{"429", &StatusError{StatusCode: 429}, true},
		{"408", &StatusError{StatusCode: 408}, true},
		{"400", &StatusError{StatusCode: 400}, false},
		{"404", &StatusError{StatusCode: 404}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestStatusError_Error(t *testing.T) {
	err := &StatusError{StatusCode: 502, Message: "Bad Gateway"}
	assert.Equal(t, "HTTP 502: Bad Gateway", err.Error())
}
