package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"drafty-relay/internal/resilience/retry"
)

// DefaultClaudeModel is used when no model is configured.
const DefaultClaudeModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// Claude implements Generator using the Anthropic Messages API.
type Claude struct {
	client anthropic.Client
	opts   Options
	guard  *guard
}

// NewClaude creates a Claude generator. Extra request options (a base URL in
// tests, for example) are passed through to the SDK client. The SDK's own
// retries are disabled; the guard owns retry.
func NewClaude(apiKey string, opts Options, metrics MetricsRecorder, extra ...option.RequestOption) *Claude {
	opts = opts.withDefaults(DefaultClaudeModel)

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, extra...)

	return &Claude{
		client: anthropic.NewClient(reqOpts...),
		opts:   opts,
		guard:  newGuard(ProviderClaude, opts, metrics),
	}
}

// Provider returns "claude".
func (c *Claude) Provider() string { return ProviderClaude }

// Generate sends prompt as a single user message and joins the text blocks of the reply.
func (c *Claude) Generate(ctx context.Context, prompt string) (string, error) {
	return c.guard.generate(ctx, prompt, c.doGenerate)
}

// Health reports the circuit breaker state. It makes no network call.
func (c *Claude) Health(_ context.Context) (*HealthStatus, error) {
	return c.guard.health(), nil
}

func (c *Claude) doGenerate(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.opts.Model),
		MaxTokens: int64(c.opts.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", classifyClaudeError(err))
	}

	var b strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

func classifyClaudeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return &retry.StatusError{StatusCode: apiErr.StatusCode, Message: http.StatusText(apiErr.StatusCode)}
	}
	return err
}
