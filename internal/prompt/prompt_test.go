package prompt

import (
	"strings"
	"testing"

	"github.com/quillfire/impetus/internal/domain"
)

func TestStoreHasTemplateForEveryMode(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	for _, mode := range []domain.Mode{domain.ModeMuse, domain.ModeLoki} {
		tpl, err := store.Template(mode)
		if err != nil {
			t.Fatalf("Template(%s) error = %v", mode, err)
		}
		if tpl.Version == "" {
			t.Errorf("%s template missing version", mode)
		}
		if !strings.Contains(tpl.UserTemplate, Placeholder) {
			t.Errorf("%s user template missing placeholder", mode)
		}
		if tpl.System == "" {
			t.Errorf("%s template missing system prompt", mode)
		}
	}
}

func TestPairSubstitutesContext(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	context := "他打开门，犹豫着要不要进去。"
	system, user, err := store.Pair(domain.ModeMuse, context)
	if err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if system == "" {
		t.Error("system prompt is empty")
	}
	if !strings.Contains(user, context) {
		t.Errorf("user prompt does not contain context: %q", user)
	}
	if strings.Contains(user, Placeholder) {
		t.Error("placeholder left unsubstituted")
	}
}

func TestPairUnknownMode(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, _, err := store.Pair("chaos", "x"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
