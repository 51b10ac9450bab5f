package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"drafty-relay/internal/observability/logging"
	"drafty-relay/internal/observability/tracing"
	"drafty-relay/internal/resilience/circuitbreaker"
	"drafty-relay/internal/resilience/retry"
	"drafty-relay/internal/utils/text"
)

// callFunc performs one provider request without retry or circuit breaker.
type callFunc func(ctx context.Context, prompt string) (string, error)

// guard wraps provider calls with a timeout, a circuit breaker, retry,
// a tracing span, structured logs and metrics.
type guard struct {
	provider    string
	model       string
	timeout     time.Duration
	breaker     *circuitbreaker.Breaker
	retryPolicy retry.Policy
	metrics     MetricsRecorder
}

func newGuard(provider string, opts Options, metrics MetricsRecorder) *guard {
	if metrics == nil {
		metrics = NewPrometheusMetrics()
	}
	return &guard{
		provider:    provider,
		model:       opts.Model,
		timeout:     opts.Timeout,
		breaker:     circuitbreaker.New(circuitbreaker.ForProvider(provider)),
		retryPolicy: retry.ForProvider(opts.RetryAttempts),
		metrics:     metrics,
	}
}

func (g *guard) generate(ctx context.Context, prompt string, call callFunc) (string, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "generator.Generate",
		trace.WithAttributes(
			attribute.String("generator.provider", g.provider),
			attribute.String("generator.model", g.model),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	logger := logging.FromContext(ctx).With(
		slog.String("provider", g.provider),
		slog.String("model", g.model))

	logger.InfoContext(ctx, "Starting generation",
		slog.Int("prompt_length", text.CountRunes(prompt)))

	start := time.Now()
	var result string
	err := retry.Do(ctx, g.retryPolicy, func() error {
		out, err := g.breaker.Call(func() (string, error) {
			return call(ctx, prompt)
		})
		if circuitbreaker.Rejected(err) {
			logger.WarnContext(ctx, "generator circuit breaker open, request rejected",
				slog.String("state", g.breaker.State().String()))
			return ErrCircuitOpen
		}
		result = out
		return err
	})
	duration := time.Since(start)
	g.metrics.RecordDuration(g.provider, duration)

	if err != nil {
		status := "error"
		if errors.Is(err, ErrCircuitOpen) {
			status = "circuit_open"
		}
		g.metrics.RecordResult(g.provider, status)
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		logger.ErrorContext(ctx, "Generation failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%s generate failed: %w", g.provider, err)
	}

	length := text.CountRunes(result)
	g.metrics.RecordLength(g.provider, length)
	status := "success"
	if strings.TrimSpace(result) == "" {
		status = "empty"
	}
	g.metrics.RecordResult(g.provider, status)
	span.SetAttributes(attribute.Int("generator.candidate_length", length))

	logger.InfoContext(ctx, "Generation completed",
		slog.Int("candidate_length", length),
		slog.Duration("duration", duration))

	return result, nil
}

func (g *guard) health() *HealthStatus {
	state := g.breaker.State()
	open := state == gobreaker.StateOpen
	return &HealthStatus{
		Provider:    g.provider,
		Healthy:     !open,
		CircuitOpen: open,
		Message:     "circuit breaker " + state.String(),
	}
}
