package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/quillfire/impetus/internal/domain"
)

// GeminiBackend drafts interventions through the Gemini API using the
// google.golang.org/genai SDK.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float64
}

// GeminiOption configures the backend.
type GeminiOption func(*geminiOptions)

type geminiOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithGeminiBaseURL points the backend at a custom endpoint.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(o *geminiOptions) {
		o.baseURL = baseURL
	}
}

// WithGeminiHTTPClient overrides the HTTP client.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(o *geminiOptions) {
		o.httpClient = client
	}
}

// NewGeminiBackend builds a backend bound to one key/model/temperature.
func NewGeminiBackend(ctx context.Context, apiKey, model string, temperature float64, timeout time.Duration, opts ...GeminiOption) (*GeminiBackend, error) {
	o := geminiOptions{
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		cfg.HTTPOptions.BaseURL = o.baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, domain.ErrAPIError(ProviderGemini, fmt.Sprintf("failed to create Gemini client: %v", err))
	}

	return &GeminiBackend{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

func (b *GeminiBackend) Name() string  { return ProviderGemini }
func (b *GeminiBackend) Model() string { return b.model }

func (b *GeminiBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (*domain.Draft, error) {
	temp := float32(b.temperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temp,
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return nil, b.classify(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, domain.ErrInvalidResponse(ProviderGemini, "Gemini returned no text candidates")
	}
	return parseDraft(ProviderGemini, text)
}

func (b *GeminiBackend) classify(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return classifyStatus(ProviderGemini, apierr.Code, apierr.Message)
	}
	return domain.ErrAPIError(ProviderGemini, "Gemini API call failed: "+err.Error())
}
