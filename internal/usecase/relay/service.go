package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"drafty-relay/internal/normalizer"
	"drafty-relay/internal/observability/logging"
	"drafty-relay/internal/utils/text"
)

// TextGenerator produces a raw candidate for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// providerNamer is implemented by generators that can name their backend.
type providerNamer interface {
	Provider() string
}

// Service runs relay requests against a TextGenerator.
// It is safe for concurrent use.
type Service struct {
	generator   TextGenerator
	provider    string
	modes       map[Mode]ModeConfig
	callTimeout time.Duration
	group       singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithModes replaces the built-in mode table.
func WithModes(modes map[Mode]ModeConfig) Option {
	return func(s *Service) { s.modes = modes }
}

// WithCallTimeout bounds each generator call. Zero leaves the bound to the generator.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.callTimeout = d }
}

// NewService creates a relay service. It fails if any mode is misconfigured.
func NewService(gen TextGenerator, opts ...Option) (*Service, error) {
	if gen == nil {
		return nil, errors.New("relay: generator is required")
	}

	s := &Service{
		generator: gen,
		provider:  "unknown",
		modes:     DefaultModes(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if p, ok := gen.(providerNamer); ok {
		s.provider = p.Provider()
	}

	for mode, cfg := range s.modes {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("relay: mode %q: %w", mode, err)
		}
	}
	return s, nil
}

// Provider returns the name of the wired generator.
func (s *Service) Provider() string {
	return s.provider
}

// Process validates req, generates a candidate and returns the normalized text
// or the mode's fallback. Only validation errors are returned; generator
// failures produce a Result with Fallback set.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	cfg, ok := s.modes[req.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	req, err := req.normalize()
	if err != nil {
		return nil, err
	}
	req.Text = text.FirstRunes(req.Text, cfg.inputLimit())

	logger := logging.FromContext(ctx).With(
		slog.String("mode", string(req.Mode)),
		slog.String("provider", s.provider))

	candidate, genErr := s.generate(ctx, req.Mode, buildPrompt(cfg, req))

	outcome := cfg.Policy.Normalize(candidate)
	if genErr == nil {
		normalizerCutsTotal.WithLabelValues(string(req.Mode), outcome.Cut.String()).Inc()
	}

	result := &Result{
		Text:      outcome.Text,
		Mode:      req.Mode,
		Provider:  s.provider,
		Truncated: isTruncation(outcome.Cut),
	}

	switch {
	case genErr != nil:
		result.Text = fallbackText(cfg, req.Text)
		result.Fallback = true
		relayOutcomesTotal.WithLabelValues(string(req.Mode), OutcomeFallbackError).Inc()
		logger.WarnContext(ctx, "generation failed, using fallback",
			slog.String("error", genErr.Error()))
	case outcome.Text == "":
		result.Text = fallbackText(cfg, req.Text)
		result.Fallback = true
		relayOutcomesTotal.WithLabelValues(string(req.Mode), OutcomeFallbackEmpty).Inc()
		logger.WarnContext(ctx, "generator returned no usable text, using fallback")
	default:
		relayOutcomesTotal.WithLabelValues(string(req.Mode), OutcomeGenerated).Inc()
		logger.InfoContext(ctx, "relay completed",
			slog.Int("input_length", text.CountRunes(req.Text)),
			slog.Int("result_length", text.CountRunes(outcome.Text)),
			slog.String("cut", outcome.Cut.String()))
	}

	return result, nil
}

// generate calls the generator once per distinct in-flight (mode, prompt).
// The shared call is detached from any single caller's cancellation; each
// caller still stops waiting when its own context ends.
func (s *Service) generate(ctx context.Context, mode Mode, prompt string) (string, error) {
	key := string(mode) + "\x00" + prompt
	ch := s.group.DoChan(key, func() (interface{}, error) {
		callCtx := context.WithoutCancel(ctx)
		if s.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, s.callTimeout)
			defer cancel()
		}
		return s.generator.Generate(callCtx, prompt)
	})

	select {
	case res := <-ch:
		if res.Shared {
			relayCoalescedTotal.WithLabelValues(string(mode)).Inc()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func fallbackText(cfg ModeConfig, input string) string {
	switch cfg.Fallback {
	case FallbackCollapsedInput:
		return strings.Join(strings.Fields(input), " ")
	case FallbackMessage:
		return cfg.FallbackMessage
	default:
		return input
	}
}

func isTruncation(c normalizer.Cut) bool {
	switch c {
	case normalizer.CutSentence, normalizer.CutWord, normalizer.CutHard, normalizer.CutOverflow:
		return true
	default:
		return false
	}
}
