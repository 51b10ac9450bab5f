// Package config loads relay configuration from the environment and an
// optional YAML policy profile.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"

	"drafty-relay/internal/infra/generator"
)

// Config is the complete relay configuration.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR"        envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
	Version         string        `env:"VERSION"          envDefault:"dev"`
	PolicyFile      string        `env:"POLICY_FILE"`
	TracingEnabled  bool          `env:"TRACING_ENABLED"  envDefault:"true"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES"   envDefault:"1048576"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Generator GeneratorConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// GeneratorConfig selects and configures the text generation provider.
type GeneratorConfig struct {
	Provider string `env:"GENERATOR_PROVIDER" envDefault:"placeholder"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIModel     string `env:"OPENAI_MODEL"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	ClaudeModel     string `env:"CLAUDE_MODEL"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiModel     string `env:"GEMINI_MODEL"`

	Timeout       time.Duration `env:"GENERATOR_TIMEOUT"        envDefault:"20s"`
	MaxTokens     int           `env:"GENERATOR_MAX_TOKENS"     envDefault:"1024"`
	RetryAttempts int           `env:"GENERATOR_RETRY_ATTEMPTS" envDefault:"2"`
}

// CORSConfig configures cross-origin access for the browser extension.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AllowedMethods []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,X-Request-ID"`
	MaxAge         int      `env:"CORS_MAX_AGE"         envDefault:"86400"`
}

// RateLimitConfig configures the per-IP token bucket.
type RateLimitConfig struct {
	Enabled         bool          `env:"RATELIMIT_ENABLED"          envDefault:"true"`
	RPS             float64       `env:"RATELIMIT_RPS"              envDefault:"2"`
	Burst           int           `env:"RATELIMIT_BURST"            envDefault:"10"`
	CleanupSchedule string        `env:"RATELIMIT_CLEANUP_SCHEDULE" envDefault:"@every 1m"`
	IdleTTL         time.Duration `env:"RATELIMIT_IDLE_TTL"         envDefault:"10m"`
	TrustProxy      bool          `env:"RATELIMIT_TRUST_PROXY"      envDefault:"false"`
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Load parses the environment and validates the result. It fails closed:
// any invalid value stops startup.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR cannot be empty"))
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of %v, got %q", logLevels, c.LogLevel))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
	}

	errs = append(errs, c.Generator.Validate(), c.CORS.Validate(), c.RateLimit.Validate())
	return errors.Join(errs...)
}

// Validate checks the generator settings.
func (g GeneratorConfig) Validate() error {
	if g.Timeout <= 0 {
		return fmt.Errorf("GENERATOR_TIMEOUT must be positive, got %v", g.Timeout)
	}
	if g.MaxTokens <= 0 {
		return fmt.Errorf("GENERATOR_MAX_TOKENS must be positive, got %d", g.MaxTokens)
	}
	if g.RetryAttempts < 1 {
		return fmt.Errorf("GENERATOR_RETRY_ATTEMPTS must be at least 1, got %d", g.RetryAttempts)
	}
	return g.Generator().Validate()
}

// Generator converts the settings for generator.New.
func (g GeneratorConfig) Generator() generator.Config {
	return generator.Config{
		Provider:      g.Provider,
		OpenAIAPIKey:  g.OpenAIAPIKey,
		OpenAIBaseURL: g.OpenAIBaseURL,
		ClaudeAPIKey:  g.AnthropicAPIKey,
		GeminiAPIKey:  g.GeminiAPIKey,
		OpenAIModel:   g.OpenAIModel,
		ClaudeModel:   g.ClaudeModel,
		GeminiModel:   g.GeminiModel,
		Options: generator.Options{
			MaxTokens:     g.MaxTokens,
			Timeout:       g.Timeout,
			RetryAttempts: g.RetryAttempts,
		},
	}
}

// Validate checks the CORS settings.
func (c CORSConfig) Validate() error {
	if len(c.AllowedOrigins) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("CORS_MAX_AGE must not be negative, got %d", c.MaxAge)
	}
	return nil
}

// AllowAll reports whether any origin is accepted.
func (c CORSConfig) AllowAll() bool {
	return slices.Contains(c.AllowedOrigins, "*")
}

// Validate checks the rate limit settings. A disabled limiter is not checked.
func (r RateLimitConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.RPS <= 0 {
		return fmt.Errorf("RATELIMIT_RPS must be positive, got %v", r.RPS)
	}
	if r.Burst <= 0 {
		return fmt.Errorf("RATELIMIT_BURST must be positive, got %d", r.Burst)
	}
	if r.IdleTTL <= 0 {
		return fmt.Errorf("RATELIMIT_IDLE_TTL must be positive, got %v", r.IdleTTL)
	}
	if _, err := cron.ParseStandard(r.CleanupSchedule); err != nil {
		return fmt.Errorf("RATELIMIT_CLEANUP_SCHEDULE %q: %w", r.CleanupSchedule, err)
	}
	return nil
}
