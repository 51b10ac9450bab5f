package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/genai"

	"drafty-relay/internal/resilience/retry"
)

// recordingMetrics captures recorder calls for assertions.
type recordingMetrics struct {
	mu        sync.Mutex
	durations int
	lengths   []int
	results   []string
}

func (m *recordingMetrics) RecordDuration(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

func (m *recordingMetrics) RecordLength(_ string, length int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lengths = append(m.lengths, length)
}

func (m *recordingMetrics) RecordResult(_ string, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, status)
}

func testOptions() Options {
	return Options{MaxTokens: 256, Timeout: 5 * time.Second, RetryAttempts: 2}
}

/* ───────── OpenAI ───────── */

func TestOpenAI_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, DefaultOpenAIModel, req.Model)
		assert.Equal(t, 256, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "Text:\nhello", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello there."}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	gen := NewOpenAI("test-key", server.URL+"/v1", testOptions(), metrics)

	got, err := gen.Generate(context.Background(), "Text:\nhello")

	require.NoError(t, err)
	assert.Equal(t, "Hello there.", got)
	assert.Equal(t, []string{"success"}, metrics.results)
	assert.Equal(t, []int{12}, metrics.lengths)
	assert.Equal(t, 1, metrics.durations)
	assert.Equal(t, ProviderOpenAI, gen.Provider())
}

func TestOpenAI_Generate_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantCalls  int32
	}{
		{name: "401 is not retried", statusCode: http.StatusUnauthorized, wantCalls: 1},
		{name: "400 is not retried", statusCode: http.StatusBadRequest, wantCalls: 1},
		{name: "429 is retried", statusCode: http.StatusTooManyRequests, wantCalls: 2},
		{name: "500 is retried", statusCode: http.StatusInternalServerError, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = fmt.Fprintf(w, `{"error": {"message": "status %d", "type": "test_error"}}`, tt.statusCode)
			}))
			defer server.Close()

			metrics := &recordingMetrics{}
			gen := NewOpenAI("test-key", server.URL+"/v1", testOptions(), metrics)

			got, err := gen.Generate(context.Background(), "prompt")

			require.Error(t, err)
			assert.Empty(t, got)
			assert.Contains(t, err.Error(), "openai generate failed")

			var httpErr *retry.StatusError
			require.True(t, errors.As(err, &httpErr), "expected retry.StatusError in chain, got %v", err)
			assert.Equal(t, tt.statusCode, httpErr.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
			assert.Equal(t, []string{"error"}, metrics.results)
		})
	}
}

func TestOpenAI_Generate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	gen := NewOpenAI("test-key", server.URL+"/v1", testOptions(), &recordingMetrics{})

	_, err := gen.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAI_Generate_WhitespaceCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "   "}}]}`))
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	gen := NewOpenAI("test-key", server.URL+"/v1", testOptions(), metrics)

	got, err := gen.Generate(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "   ", got)
	assert.Equal(t, []string{"empty"}, metrics.results)
}

/* ───────── Claude ───────── */

func TestClaude_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, 256, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Polished "}, {"type": "text", "text": "reply."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	opts := testOptions()
	opts.Model = "claude-test"
	metrics := &recordingMetrics{}
	gen := NewClaude("test-key", opts, metrics, option.WithBaseURL(server.URL))

	got, err := gen.Generate(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "Polished reply.", got)
	assert.Equal(t, []string{"success"}, metrics.results)
}

func TestClaude_Generate_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "overloaded_error", "message": "overloaded"}}`))
	}))
	defer server.Close()

	gen := NewClaude("test-key", testOptions(), &recordingMetrics{}, option.WithBaseURL(server.URL))

	_, err := gen.Generate(context.Background(), "prompt")

	require.Error(t, err)
	var httpErr *retry.StatusError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

/* ───────── Gemini ───────── */

type fakeModels struct {
	calls atomic.Int32
	fn    func(ctx context.Context, model string) (*genai.GenerateContentResponse, error)
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, _ []*genai.Content,
	_ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls.Add(1)
	return f.fn(ctx, model)
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(s, genai.RoleModel)}},
	}
}

func TestGemini_Generate(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context, model string) (*genai.GenerateContentResponse, error)
		want      string
		wantErrIs error
		wantCode  int
		wantCalls int32
	}{
		{
			name: "success uses default model",
			fn: func(_ context.Context, model string) (*genai.GenerateContentResponse, error) {
				if model != DefaultGeminiModel {
					return nil, fmt.Errorf("unexpected model %q", model)
				}
				return textResponse("Short and clear."), nil
			},
			want:      "Short and clear.",
			wantCalls: 1,
		},
		{
			name: "no candidates",
			fn: func(context.Context, string) (*genai.GenerateContentResponse, error) {
				return &genai.GenerateContentResponse{}, nil
			},
			wantErrIs: ErrEmptyResponse,
			wantCalls: 1,
		},
		{
			name: "503 is retried",
			fn: func(context.Context, string) (*genai.GenerateContentResponse, error) {
				return nil, genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"}
			},
			wantCode:  503,
			wantCalls: 2,
		},
		{
			name: "400 is not retried",
			fn: func(context.Context, string) (*genai.GenerateContentResponse, error) {
				return nil, genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad"}
			},
			wantCode:  400,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModels{fn: tt.fn}
			gen := newGemini(fake, testOptions(), &recordingMetrics{})

			got, err := gen.Generate(context.Background(), "prompt")

			assert.Equal(t, tt.wantCalls, fake.calls.Load())
			switch {
			case tt.wantErrIs != nil:
				assert.ErrorIs(t, err, tt.wantErrIs)
			case tt.wantCode != 0:
				var httpErr *retry.StatusError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, tt.wantCode, httpErr.StatusCode)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGemini_Generate_Timeout(t *testing.T) {
	fake := &fakeModels{fn: func(ctx context.Context, _ string) (*genai.GenerateContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond
	gen := newGemini(fake, opts, &recordingMetrics{})

	start := time.Now()
	_, err := gen.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestGenerator_CircuitOpens(t *testing.T) {
	fake := &fakeModels{fn: func(context.Context, string) (*genai.GenerateContentResponse, error) {
		return nil, genai.APIError{Code: 500, Status: "INTERNAL"}
	}}
	opts := testOptions()
	opts.RetryAttempts = 1
	metrics := &recordingMetrics{}
	gen := newGemini(fake, opts, metrics)

	for i := 0; i < 5; i++ {
		_, err := gen.Generate(context.Background(), "prompt")
		require.Error(t, err)
	}

	status, err := gen.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.CircuitOpen)
	assert.False(t, status.Healthy)

	_, err = gen.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(5), fake.calls.Load(), "open circuit must not reach the provider")
	assert.Equal(t, "circuit_open", metrics.results[len(metrics.results)-1])
}

func TestGenerator_Health_Closed(t *testing.T) {
	gen := newGemini(&fakeModels{}, testOptions(), &recordingMetrics{})

	status, err := gen.Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, status.Provider)
	assert.True(t, status.Healthy)
	assert.False(t, status.CircuitOpen)
	assert.Equal(t, "circuit breaker closed", status.Message)
}

func TestGenerator_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(sdktrace.NewTracerProvider())

	gen := newGemini(&fakeModels{fn: func(context.Context, string) (*genai.GenerateContentResponse, error) {
		return textResponse("ok"), nil
	}}, testOptions(), &recordingMetrics{})

	_, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "generator.Generate", spans[0].Name)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, ProviderGemini, attrs["generator.provider"])
	assert.Equal(t, DefaultGeminiModel, attrs["generator.model"])
	assert.Equal(t, "2", attrs["generator.candidate_length"])
}

/* ───────── Placeholder ───────── */

func TestPlaceholder_Generate(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{name: "text section", prompt: "You are Drafty.\nTone: neutral.\nText:\n  hello \n\n world  ", want: "hello world"},
		{name: "prompt starts with marker", prompt: "Text:\nhi\tthere", want: "hi there"},
		{name: "no marker echoes prompt", prompt: "just  some\ntext", want: "just some text"},
		{name: "marker inside input is kept", prompt: "Role.\nText:\nsee Text:\nbelow", want: "see Text: below"},
		{name: "empty input", prompt: "Role.\nText:\n", want: ""},
	}

	gen := NewPlaceholder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gen.Generate(context.Background(), tt.prompt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	status, err := gen.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

/* ───────── Config ───────── */

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "placeholder needs nothing", cfg: Config{Provider: ProviderPlaceholder}},
		{name: "openai with key", cfg: Config{Provider: ProviderOpenAI, OpenAIAPIKey: "k"}},
		{name: "openai without key", cfg: Config{Provider: ProviderOpenAI}, wantErr: "openai provider requires an API key"},
		{name: "claude without key", cfg: Config{Provider: ProviderClaude}, wantErr: "claude provider requires an API key"},
		{name: "gemini without key", cfg: Config{Provider: ProviderGemini}, wantErr: "gemini provider requires an API key"},
		{name: "unknown provider", cfg: Config{Provider: "llama"}, wantErr: "unknown generator provider"},
		{
			name:    "negative timeout",
			cfg:     Config{Provider: ProviderPlaceholder, Options: Options{Timeout: -time.Second}},
			wantErr: "timeout must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew(t *testing.T) {
	gen, err := New(context.Background(), Config{Provider: ProviderPlaceholder})
	require.NoError(t, err)
	assert.Equal(t, ProviderPlaceholder, gen.Provider())

	gen, err = New(context.Background(), Config{Provider: ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "gpt-test"})
	require.NoError(t, err)
	openAI, ok := gen.(*OpenAI)
	require.True(t, ok)
	assert.Equal(t, "gpt-test", openAI.opts.Model)

	_, err = New(context.Background(), Config{Provider: "llama"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestOptions_WithDefaults(t *testing.T) {
	got := Options{}.withDefaults("model-x")

	assert.Equal(t, Options{
		Model:         "model-x",
		MaxTokens:     DefaultMaxTokens,
		Timeout:       DefaultTimeout,
		RetryAttempts: DefaultRetryAttempts,
	}, got)

	kept := Options{Model: "m", MaxTokens: 5, Timeout: time.Second, RetryAttempts: 3}.withDefaults("model-x")
	assert.Equal(t, "m", kept.Model)
	assert.Equal(t, 3, kept.RetryAttempts)
}
