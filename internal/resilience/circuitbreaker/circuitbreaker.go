// Package circuitbreaker stops calling a generation provider that keeps
// failing. It wraps github.com/sony/gobreaker and exports each breaker's
// state as a Prometheus gauge.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// stateGauge reports 0 (closed), 1 (half-open) or 2 (open) per breaker.
var stateGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "relay_circuit_breaker_state",
		Help: "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
	},
	[]string{"circuit"},
)

// Config tunes one breaker.
type Config struct {
	Name string

	// HalfOpenProbes calls are let through after OpenTimeout; all must
	// succeed to close the circuit again.
	HalfOpenProbes uint32

	// CountWindow clears the closed-state counts periodically. Zero keeps them
	// until the state changes.
	CountWindow time.Duration

	OpenTimeout time.Duration

	// The circuit trips once MinRequests calls were counted and at least
	// TripRatio of them failed.
	TripRatio   float64
	MinRequests uint32
}

// ForProvider returns the breaker settings for a generation provider.
// Callers wait on these calls, so the open state is kept short.
func ForProvider(provider string) Config {
	return Config{
		Name:           provider + "-api",
		HalfOpenProbes: 3,
		CountWindow:    30 * time.Second,
		OpenTimeout:    30 * time.Second,
		TripRatio:      0.6,
		MinRequests:    5,
	}
}

// Breaker guards calls that produce a string, such as a provider completion.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenProbes,
		Interval:    cfg.CountWindow,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.TripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			stateGauge.WithLabelValues(name).Set(stateValue(to))
		},
	}
	stateGauge.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Call runs fn unless the circuit rejects it. A rejection is reported
// through Rejected.
func (b *Breaker) Call(fn func() (string, error)) (string, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// Rejected reports whether err means the breaker refused the call.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (b *Breaker) Name() string { return b.cb.Name() }

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// IsOpen reports whether calls are currently refused outright.
func (b *Breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
