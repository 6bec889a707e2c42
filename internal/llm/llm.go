// Package llm contains the provider adapters and the registry that
// resolves which adapter serves a request. Backends speak their own SDK
// wire formats; everything above this package sees only domain types and
// the canonical error taxonomy.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quillfire/impetus/internal/domain"
	"github.com/quillfire/impetus/internal/prompt"
)

// Provider names form a closed enumeration; unknown names are rejected by
// the registry before any instance is built.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderDebug     = "debug"
)

// defaultTrailingWindow is the provisional range width (in document
// positions) behind the cursor for delete/rewrite drafts. The
// intervention service refines rewrite anchors to sentence boundaries
// afterwards.
const defaultTrailingWindow = 120

// modelFallbacks are the hardcoded per-provider models used when neither
// an override nor a configured model exists.
var modelFallbacks = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGemini:    "gemini-2.0-flash-lite",
	ProviderDebug:     "debug-model",
}

// temperatureFallbacks are the hardcoded per-provider sampling
// temperatures. Overrides never set temperature; only configuration or
// these fallbacks do.
var temperatureFallbacks = map[string]float64{
	ProviderOpenAI:    0.9,
	ProviderAnthropic: 0.8,
	ProviderGemini:    0.7,
	ProviderDebug:     0.0,
}

// FallbackModel returns the hardcoded model for a known provider name.
func FallbackModel(provider string) string {
	return modelFallbacks[provider]
}

// FallbackTemperature returns the hardcoded temperature for a known
// provider name.
func FallbackTemperature(provider string) float64 {
	return temperatureFallbacks[provider]
}

// Backend is one concrete LLM integration. Complete turns a prompt pair
// into a minimal draft and must translate every SDK or transport failure
// into a *domain.ProviderError before returning.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*domain.Draft, error)
}

// promptProvider implements domain.Provider on top of a Backend: it
// selects the prompt pair by mode, validates the draft, computes the
// provisional anchor, and mints lock/action ids.
type promptProvider struct {
	backend Backend
	prompts *prompt.Store
}

// NewProvider wraps a backend with the shared draft-to-response contract.
func NewProvider(backend Backend, prompts *prompt.Store) domain.Provider {
	return &promptProvider{backend: backend, prompts: prompts}
}

func (p *promptProvider) Name() string  { return p.backend.Name() }
func (p *promptProvider) Model() string { return p.backend.Model() }

func (p *promptProvider) Generate(ctx context.Context, params domain.GenerateParams) (*domain.InterventionResponse, error) {
	if params.Context == "" {
		return nil, fmt.Errorf("context cannot be empty")
	}
	if !params.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode: %q", params.Mode)
	}

	system, user, err := p.prompts.Pair(params.Mode, params.Context)
	if err != nil {
		return nil, err
	}

	draft, err := p.backend.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	if !draft.Action.Valid() {
		return nil, domain.ErrInvalidResponse(p.Name(), fmt.Sprintf("backend returned unknown action %q", draft.Action))
	}

	cursor := max(0, params.Cursor())

	var anchor domain.Anchor
	switch {
	case draft.Action == domain.ActionProvoke:
		anchor = domain.PosAnchor(cursor)
	case cursor > 0:
		anchor = domain.RangeAnchor(max(0, cursor-defaultTrailingWindow), cursor)
	default:
		// A range anchor must cover at least one rune; with the cursor
		// at the document start the trailing window is empty, so target
		// the first rune instead.
		anchor = domain.RangeAnchor(0, 1)
	}

	content := draft.Content
	lockID := ""
	if draft.Action == domain.ActionProvoke || draft.Action == domain.ActionRewrite {
		if strings.TrimSpace(content) == "" {
			return nil, domain.ErrInvalidResponse(p.Name(), "backend returned mutate action without content")
		}
		lockID = NewLockID()
	} else {
		content = ""
	}

	return &domain.InterventionResponse{
		Action:   draft.Action,
		Content:  content,
		LockID:   lockID,
		Anchor:   anchor,
		ActionID: NewActionID(),
	}, nil
}

// NewLockID mints an opaque lock token.
func NewLockID() string {
	return "lock_" + uuid.NewString()
}

// NewActionID mints an opaque action token.
func NewActionID() string {
	return "act_" + uuid.NewString()
}

// parseDraft extracts the draft JSON object from raw model output. Models
// are prompted to return bare JSON but frequently wrap it in code fences
// or prose, so parsing scans for the outermost object.
func parseDraft(provider, raw string) (*domain.Draft, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, domain.ErrInvalidResponse(provider, "backend returned an empty payload")
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return nil, domain.ErrInvalidResponse(provider, "no JSON object in backend payload")
	}

	var draft domain.Draft
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &draft); err != nil {
		return nil, domain.ErrInvalidResponse(provider, fmt.Sprintf("unparseable backend payload: %v", err))
	}

	draft.Action = domain.Action(strings.ToLower(strings.TrimSpace(string(draft.Action))))
	if !draft.Action.Valid() {
		return nil, domain.ErrInvalidResponse(provider, fmt.Sprintf("backend returned unknown action %q", draft.Action))
	}
	return &draft, nil
}

// classifyStatus maps an HTTP status from a backend into the canonical
// taxonomy: 429 means quota, 401/403 mean a rejected credential, anything
// else is a generic API error.
func classifyStatus(provider string, status int, message string) *domain.ProviderError {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.ErrQuotaExceeded(provider, fmt.Sprintf("%s quota exceeded. Provide another key or try later.", provider))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrInvalidAPIKey(provider, fmt.Sprintf("%s rejected the API key.", provider))
	default:
		return domain.ErrAPIError(provider, message)
	}
}
