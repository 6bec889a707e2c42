package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/quillfire/impetus/internal/domain"
)

func TestDebugProviderDeterministic(t *testing.T) {
	p := NewDebugProvider("")

	params := domain.GenerateParams{
		Context:     "雨落在窗台上，敲出细碎的声音。",
		Mode:        domain.ModeMuse,
		SelectionTo: 15,
	}
	first, err := p.Generate(context.Background(), params)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := p.Generate(context.Background(), params)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if first.Action != domain.ActionProvoke {
		t.Errorf("action = %q, want provoke", first.Action)
	}
	if first.Content != second.Content {
		t.Errorf("content not deterministic: %q vs %q", first.Content, second.Content)
	}
	if !strings.HasPrefix(first.Content, "[debug:muse] ") {
		t.Errorf("content = %q, want [debug:muse] prefix", first.Content)
	}
	if first.LockID != "lock_debug" {
		t.Errorf("lock_id = %q, want lock_debug", first.LockID)
	}
	if first.ActionID != "act_debug" {
		t.Errorf("action_id = %q, want act_debug", first.ActionID)
	}
	if first.Anchor.Type != domain.AnchorTypePos || first.Anchor.From != 15 {
		t.Errorf("anchor = %+v, want pos at 15", first.Anchor)
	}
}

func TestDebugProviderTrailingSnippet(t *testing.T) {
	long := strings.Repeat("甲", 100) + strings.Repeat("乙", 40)
	p := NewDebugProvider("")

	resp, err := p.Generate(context.Background(), domain.GenerateParams{
		Context: long,
		Mode:    domain.ModeLoki,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "[debug:loki] " + strings.Repeat("乙", 40)
	if resp.Content != want {
		t.Errorf("content = %q, want %q", resp.Content, want)
	}
}

func TestDebugProviderValidation(t *testing.T) {
	p := NewDebugProvider("")

	if _, err := p.Generate(context.Background(), domain.GenerateParams{Mode: domain.ModeMuse}); err == nil {
		t.Error("expected error for empty context")
	}
	if _, err := p.Generate(context.Background(), domain.GenerateParams{Context: "x", Mode: "chaos"}); err == nil {
		t.Error("expected error for invalid mode")
	}
}

func TestDebugProviderModelFallback(t *testing.T) {
	if got := NewDebugProvider("").Model(); got != "debug-model" {
		t.Errorf("Model() = %q, want debug-model", got)
	}
	if got := NewDebugProvider("custom").Model(); got != "custom" {
		t.Errorf("Model() = %q, want custom", got)
	}
}
