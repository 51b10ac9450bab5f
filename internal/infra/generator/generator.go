// Package generator provides text generation backends for the relay.
// It includes adapters for OpenAI, Claude (Anthropic) and Gemini with
// circuit breaking, retry, tracing and Prometheus metrics, plus an offline
// placeholder that needs no credentials.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderOpenAI      = "openai"
	ProviderClaude      = "claude"
	ProviderGemini      = "gemini"
	ProviderPlaceholder = "placeholder"
)

// Defaults applied when an Options field is left zero.
const (
	DefaultMaxTokens     = 1024
	DefaultTimeout       = 20 * time.Second
	DefaultRetryAttempts = 2
)

var (
	// ErrCircuitOpen is returned while a provider's circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("generator unavailable: circuit breaker open")

	// ErrEmptyResponse is returned when a provider answers without any text.
	ErrEmptyResponse = errors.New("generator returned empty response")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown generator provider")
)

// TextGenerator produces a candidate text for a prompt.
// An error and an empty string both mean "no candidate"; callers decide the fallback.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HealthChecker reports the availability of a generator.
type HealthChecker interface {
	Health(ctx context.Context) (*HealthStatus, error)
}

// Generator is a TextGenerator that can also report its health.
type Generator interface {
	TextGenerator
	HealthChecker
	Provider() string
}

// HealthStatus represents the health of a generation provider.
type HealthStatus struct {
	Provider    string
	Healthy     bool
	CircuitOpen bool
	Message     string
	Latency     time.Duration
}

// Options holds the settings shared by every networked provider.
type Options struct {
	// Model is the provider model identifier. Empty selects the provider default.
	Model string

	// MaxTokens bounds the provider response.
	MaxTokens int

	// Timeout bounds a whole Generate call, retries included.
	Timeout time.Duration

	// RetryAttempts is the total number of attempts per Generate call.
	RetryAttempts int
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	if o.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative, got %d", o.MaxTokens)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", o.Timeout)
	}
	if o.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative, got %d", o.RetryAttempts)
	}
	return nil
}

func (o Options) withDefaults(model string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryAttempts == 0 {
		o.RetryAttempts = DefaultRetryAttempts
	}
	return o
}

// Config selects and configures a provider.
type Config struct {
	Provider string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	ClaudeAPIKey  string
	GeminiAPIKey  string

	OpenAIModel string
	ClaudeModel string
	GeminiModel string

	Options Options
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	if err := c.Options.Validate(); err != nil {
		return err
	}
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("openai provider requires an API key")
		}
	case ProviderClaude:
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("claude provider requires an API key")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("gemini provider requires an API key")
		}
	case ProviderPlaceholder:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	return nil
}

// New builds the generator selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator configuration: %w", err)
	}

	metrics := NewPrometheusMetrics()
	switch cfg.Provider {
	case ProviderOpenAI:
		opts := cfg.Options
		opts.Model = cfg.OpenAIModel
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, opts, metrics), nil
	case ProviderClaude:
		opts := cfg.Options
		opts.Model = cfg.ClaudeModel
		return NewClaude(cfg.ClaudeAPIKey, opts, metrics), nil
	case ProviderGemini:
		opts := cfg.Options
		opts.Model = cfg.GeminiModel
		return NewGemini(ctx, cfg.GeminiAPIKey, opts, metrics)
	default:
		return NewPlaceholder(), nil
	}
}
