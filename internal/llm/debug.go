package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/quillfire/impetus/internal/domain"
)

// debugSnippetRunes is how much trailing context the debug provider
// echoes back.
const debugSnippetRunes = 40

// DebugProvider returns deterministic responses without any network
// call. It holds no secret, so registry instances are cacheable. It is
// only resolvable when the debug enablement flag is set.
type DebugProvider struct {
	model string
	now   func() time.Time
}

// NewDebugProvider builds the deterministic provider.
func NewDebugProvider(model string) *DebugProvider {
	if model == "" {
		model = FallbackModel(ProviderDebug)
	}
	return &DebugProvider{model: model, now: time.Now}
}

func (p *DebugProvider) Name() string  { return ProviderDebug }
func (p *DebugProvider) Model() string { return p.model }

func (p *DebugProvider) Generate(_ context.Context, params domain.GenerateParams) (*domain.InterventionResponse, error) {
	if params.Context == "" {
		return nil, fmt.Errorf("context cannot be empty")
	}
	if !params.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode: %q", params.Mode)
	}

	runes := []rune(params.Context)
	cursor := params.Cursor()
	if cursor <= 0 {
		cursor = len(runes)
	}

	end := min(cursor, len(runes))
	snippet := string(runes[max(0, end-debugSnippetRunes):end])
	if snippet == "" {
		snippet = "继续写下去。"
	}

	return &domain.InterventionResponse{
		Action:   domain.ActionProvoke,
		Content:  fmt.Sprintf("[debug:%s] %s", params.Mode, snippet),
		LockID:   "lock_debug",
		Anchor:   domain.PosAnchor(max(0, params.Cursor())),
		ActionID: "act_debug",
		IssuedAt: p.now().UTC(),
	}, nil
}
