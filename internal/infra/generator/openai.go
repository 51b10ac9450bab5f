package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"drafty-relay/internal/resilience/retry"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI implements Generator using the OpenAI chat completion API.
type OpenAI struct {
	client *openai.Client
	opts   Options
	guard  *guard
}

// NewOpenAI creates an OpenAI generator. baseURL may be empty for the public API
// or point at any OpenAI-compatible endpoint (it must include the /v1 suffix).
func NewOpenAI(apiKey, baseURL string, opts Options, metrics MetricsRecorder) *OpenAI {
	opts = opts.withDefaults(DefaultOpenAIModel)

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
		guard:  newGuard(ProviderOpenAI, opts, metrics),
	}
}

// Provider returns "openai".
func (o *OpenAI) Provider() string { return ProviderOpenAI }

// Generate sends prompt as a single user message and returns the first choice.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	return o.guard.generate(ctx, prompt, o.doGenerate)
}

// Health reports the circuit breaker state. It makes no network call.
func (o *OpenAI) Health(_ context.Context) (*HealthStatus, error) {
	return o.guard.health(), nil
}

func (o *OpenAI) doGenerate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.opts.Model,
		MaxTokens: o.opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", classifyOpenAIError(err))
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError exposes the HTTP status so retry can decide.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &retry.StatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &retry.StatusError{StatusCode: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode)}
	}
	return err
}
