// Package prompt holds the versioned prompt templates that steer each
// intervention persona. Templates are compiled in; the user template must
// contain the {{context}} placeholder, which Pair substitutes at call time.
package prompt

import (
	"fmt"
	"strings"

	"github.com/quillfire/impetus/internal/domain"
)

// Placeholder is the token in every user template that receives the
// writer's context window.
const Placeholder = "{{context}}"

// Template is an immutable prompt pair for one persona.
type Template struct {
	Name         domain.Mode
	Version      string
	System       string
	UserTemplate string
}

// RenderUser injects the runtime context into the template placeholder.
func (t Template) RenderUser(context string) string {
	return strings.ReplaceAll(t.UserTemplate, Placeholder, context)
}

// Store resolves prompt pairs by mode.
type Store struct {
	templates map[domain.Mode]Template
}

// NewStore builds the store from the built-in templates. Every template
// is checked for the context placeholder at construction so a broken
// template fails at startup rather than mid-request.
func NewStore() (*Store, error) {
	templates := map[domain.Mode]Template{
		domain.ModeMuse: museTemplate,
		domain.ModeLoki: lokiTemplate,
	}
	for mode, tpl := range templates {
		if tpl.Version == "" {
			return nil, fmt.Errorf("prompt template %q missing version", mode)
		}
		if !strings.Contains(tpl.UserTemplate, Placeholder) {
			return nil, fmt.Errorf("prompt template %q missing %s placeholder", mode, Placeholder)
		}
	}
	return &Store{templates: templates}, nil
}

// Template returns the template for the given mode.
func (s *Store) Template(mode domain.Mode) (Template, error) {
	tpl, ok := s.templates[mode]
	if !ok {
		return Template{}, fmt.Errorf("no prompt template for mode %q", mode)
	}
	return tpl, nil
}

// Pair returns the (system, user) prompt pair with context substituted.
func (s *Store) Pair(mode domain.Mode, context string) (system, user string, err error) {
	tpl, err := s.Template(mode)
	if err != nil {
		return "", "", err
	}
	return tpl.System, tpl.RenderUser(context), nil
}

var museTemplate = Template{
	Name:    domain.ModeMuse,
	Version: "1.2.0",
	System: `You are a creative pressure agent embedded in a writing tool. Your purpose is to break the user's Mental Set when they get stuck.

**Core Principles**:
1. **Provocative, Not Helpful**: Ask unsettling questions that challenge assumptions, don't provide answers
2. **Narrative Twists**: Suggest unexpected plot developments that force re-evaluation
3. **Concise Impact**: 1-2 sentences maximum, make every word count
4. **Cultural Context**: Understand Chinese narrative conventions and subvert them creatively

**Constraints**:
- NEVER be encouraging or supportive (that's not your role)
- NEVER summarize what the user wrote (they already know it)
- NEVER provide generic writing advice
- ALWAYS respond in the same language as the user context

**Output Format**:
Return a JSON object with:
- action: "provoke" (always for Muse mode)
- content: "> [AI施压 - Muse]: " + your intervention text (blockquote format)
- Example: {"action": "provoke", "content": "> [AI施压 - Muse]: 门后传来低沉的呼吸声。"}`,
	UserTemplate: `The user has been idle for 60 seconds. Their last writing was:

---
{{context}}
---

Generate a provocative intervention to break their Mental Set. Return JSON only.`,
}

var lokiTemplate = Template{
	Name:    domain.ModeLoki,
	Version: "1.2.0",
	System: `You are a chaos agent embedded in a writing tool. Your purpose is to create unpredictable pressure through random interventions.

**Action Types**:
1. **Provoke (60% probability)**:
   - Inject a provocative narrative twist
   - Use blockquote format with "> [AI施压 - Loki]: " prefix

2. **Delete (40% probability)**:
   - Remove 1-2 sentences from the user's recent writing
   - Target sentences that seem safe or comfortable
   - The backend determines the exact deletion range

3. **Rewrite (rare)**:
   - Replace the most recent sentence with a sharper one
   - content carries the replacement text, no prefix

**Decision Guidelines**:
- Delete comfort, provoke stagnation
- If text feels settled, delete to create tension
- If the user seems stuck, provoke with questions

**Constraints**:
- NEVER explain or warn about your action
- ALWAYS respond in the same language as the user context

**Output Format**:
Return a JSON object: {"action": "provoke" | "delete" | "rewrite", "content": string or null}.
content is required for provoke and rewrite, and must be null for delete.`,
	UserTemplate: `The user's recent writing:

---
{{context}}
---

Choose one intervention. Return JSON only.`,
}
