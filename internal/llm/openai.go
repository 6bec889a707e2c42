package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/quillfire/impetus/internal/domain"
)

// OpenAIBackend drafts interventions through the OpenAI Chat Completions
// API using the official SDK.
type OpenAIBackend struct {
	client      openai.Client
	model       string
	temperature float64
}

// OpenAIOption configures the backend.
type OpenAIOption func(*openAIOptions)

type openAIOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithOpenAIBaseURL points the backend at a custom endpoint, used by
// tests and OpenAI-compatible gateways.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(o *openAIOptions) {
		o.baseURL = baseURL
	}
}

// WithOpenAIHTTPClient overrides the HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(o *openAIOptions) {
		o.httpClient = client
	}
}

// NewOpenAIBackend builds a backend bound to one key/model/temperature.
func NewOpenAIBackend(apiKey, model string, temperature float64, timeout time.Duration, opts ...OpenAIOption) *OpenAIBackend {
	o := openAIOptions{
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.httpClient),
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}

	return &OpenAIBackend{
		client:      openai.NewClient(clientOpts...),
		model:       model,
		temperature: temperature,
	}
}

func (b *OpenAIBackend) Name() string  { return ProviderOpenAI }
func (b *OpenAIBackend) Model() string { return b.model }

func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (*domain.Draft, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(b.model),
		Temperature: openai.Float(b.temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return nil, b.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, domain.ErrInvalidResponse(ProviderOpenAI, "OpenAI returned no choices")
	}
	return parseDraft(ProviderOpenAI, resp.Choices[0].Message.Content)
}

// classify translates SDK failures into the canonical taxonomy so no
// openai-go error type crosses the adapter boundary.
func (b *OpenAIBackend) classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return classifyStatus(ProviderOpenAI, apierr.StatusCode, apierr.Message)
	}
	return domain.ErrAPIError(ProviderOpenAI, "OpenAI API call failed: "+err.Error())
}
