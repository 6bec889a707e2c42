package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/quillfire/impetus/internal/domain"
)

// anthropicMaxTokens bounds the draft completion; interventions are one
// or two sentences, so this is generous.
const anthropicMaxTokens = 1024

// AnthropicBackend drafts interventions through the Anthropic Messages
// API using the official SDK.
type AnthropicBackend struct {
	client      anthropic.Client
	model       string
	temperature float64
}

// AnthropicOption configures the backend.
type AnthropicOption func(*anthropicOptions)

type anthropicOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithAnthropicBaseURL points the backend at a custom endpoint.
func WithAnthropicBaseURL(baseURL string) AnthropicOption {
	return func(o *anthropicOptions) {
		o.baseURL = baseURL
	}
}

// WithAnthropicHTTPClient overrides the HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(o *anthropicOptions) {
		o.httpClient = client
	}
}

// NewAnthropicBackend builds a backend bound to one key/model/temperature.
func NewAnthropicBackend(apiKey, model string, temperature float64, timeout time.Duration, opts ...AnthropicOption) *AnthropicBackend {
	o := anthropicOptions{
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

	return &AnthropicBackend{
		client:      anthropic.NewClient(clientOpts...),
		model:       model,
		temperature: temperature,
	}
}

func (b *AnthropicBackend) Name() string  { return ProviderAnthropic }
func (b *AnthropicBackend) Model() string { return b.model }

func (b *AnthropicBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (*domain.Draft, error) {
	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(b.temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, b.classify(err)
	}

	return parseDraft(ProviderAnthropic, collectText(msg.Content))
}

func collectText(blocks []anthropic.ContentBlockUnion) string {
	var sb strings.Builder
	for _, block := range blocks {
		if block.Type != "text" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block.Text)
	}
	return sb.String()
}

func (b *AnthropicBackend) classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return classifyStatus(ProviderAnthropic, apierr.StatusCode, "Anthropic API error")
	}
	return domain.ErrAPIError(ProviderAnthropic, "Anthropic API call failed: "+err.Error())
}
