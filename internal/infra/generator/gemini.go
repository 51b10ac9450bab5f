package generator

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"drafty-relay/internal/resilience/retry"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-flash-latest"

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Generator using the Gemini API.
type Gemini struct {
	models contentGenerator
	opts   Options
	guard  *guard
}

// NewGemini creates a Gemini generator backed by the Gemini Developer API.
func NewGemini(ctx context.Context, apiKey string, opts Options, metrics MetricsRecorder) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(client.Models, opts, metrics), nil
}

func newGemini(models contentGenerator, opts Options, metrics MetricsRecorder) *Gemini {
	opts = opts.withDefaults(DefaultGeminiModel)
	return &Gemini{
		models: models,
		opts:   opts,
		guard:  newGuard(ProviderGemini, opts, metrics),
	}
}

// Provider returns "gemini".
func (g *Gemini) Provider() string { return ProviderGemini }

// Generate sends prompt as a single user turn and returns the response text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return g.guard.generate(ctx, prompt, g.doGenerate)
}

// Health reports the circuit breaker state. It makes no network call.
func (g *Gemini) Health(_ context.Context) (*HealthStatus, error) {
	return g.guard.health(), nil
}

func (g *Gemini) doGenerate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.opts.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.opts.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("gemini api error: %w", classifyGeminiError(err))
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Text(), nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &retry.StatusError{StatusCode: apiErr.Code, Message: apiErr.Status}
	}
	return err
}
