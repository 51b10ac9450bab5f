package circuitbreaker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

func testConfig(name string, openTimeout time.Duration) Config {
	return Config{
		Name:           name,
		HalfOpenProbes: 2,
		CountWindow:    10 * time.Second,
		OpenTimeout:    openTimeout,
		TripRatio:      0.6,
		MinRequests:    5,
	}
}

func fail() (string, error) {
	return "", errUpstream
}

func succeed() (string, error) {
	return "ok", nil
}

func TestNew(t *testing.T) {
	b := New(testConfig("test-new", time.Second))

	assert.Equal(t, "test-new", b.Name())
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, float64(0), testutil.ToFloat64(stateGauge.WithLabelValues("test-new")))
}

func TestBreaker_Call(t *testing.T) {
	b := New(testConfig("test-call", time.Second))

	out, err := b.Call(func() (string, error) { return "candidate", nil })
	require.NoError(t, err)
	assert.Equal(t, "candidate", out)

	out, err = b.Call(fail)
	assert.ErrorIs(t, err, errUpstream)
	assert.Empty(t, out)
	assert.False(t, Rejected(err))
}

func TestBreaker_TripsOpen(t *testing.T) {
	b := New(testConfig("test-trip", time.Minute))

	// 4 failures and 1 success stay closed; the next failure makes 5 of 6.
	for range 4 {
		_, _ = b.Call(fail)
	}
	_, _ = b.Call(succeed)
	require.False(t, b.IsOpen(), "opened before the ratio was crossed")
	_, _ = b.Call(fail)

	require.True(t, b.IsOpen())
	assert.Equal(t, float64(2), testutil.ToFloat64(stateGauge.WithLabelValues("test-trip")))

	_, err := b.Call(func() (string, error) {
		t.Error("call must not run while the circuit is open")
		return "", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, Rejected(err))
	assert.True(t, Rejected(fmt.Errorf("openai: %w", err)))
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := New(testConfig("test-half-open", 100*time.Millisecond))

	for range 6 {
		_, _ = b.Call(fail)
	}
	require.True(t, b.IsOpen())

	time.Sleep(150 * time.Millisecond)

	for range 2 {
		_, err := b.Call(succeed)
		require.NoError(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, float64(0), testutil.ToFloat64(stateGauge.WithLabelValues("test-half-open")))
}

func TestBreaker_MinRequests(t *testing.T) {
	cfg := testConfig("test-min", time.Minute)
	cfg.MinRequests = 10
	b := New(cfg)

	for range 9 {
		_, _ = b.Call(fail)
	}
	assert.False(t, b.IsOpen())
}

func TestForProvider(t *testing.T) {
	for _, provider := range []string{"openai", "claude", "gemini"} {
		cfg := ForProvider(provider)
		assert.Equal(t, provider+"-api", cfg.Name)
		assert.Equal(t, 30*time.Second, cfg.OpenTimeout)
		assert.Equal(t, uint32(5), cfg.MinRequests)
		assert.InDelta(t, 0.6, cfg.TripRatio, 1e-9)
	}
}
