// Package domain holds the intervention wire types and the canonical
// provider error taxonomy shared by every layer of the server.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// MaxContextRunes is the upper bound on the client-supplied context window.
const MaxContextRunes = 2000

// Mode is the intervention persona requested by the client.
type Mode string

const (
	// ModeMuse produces constructive provocations and never deletes.
	ModeMuse Mode = "muse"

	// ModeLoki produces destructive/chaotic provocations and may delete.
	ModeLoki Mode = "loki"
)

// Valid reports whether the mode is a known persona.
func (m Mode) Valid() bool {
	return m == ModeMuse || m == ModeLoki
}

// Action is the kind of document edit an intervention requests.
type Action string

const (
	ActionProvoke Action = "provoke"
	ActionDelete  Action = "delete"
	ActionRewrite Action = "rewrite"
)

// Valid reports whether the action is one of the closed set.
func (a Action) Valid() bool {
	return a == ActionProvoke || a == ActionDelete || a == ActionRewrite
}

// AnchorType discriminates the anchor union.
type AnchorType string

const (
	AnchorTypePos    AnchorType = "pos"
	AnchorTypeRange  AnchorType = "range"
	AnchorTypeLockID AnchorType = "lock_id"
)

// Anchor tells the editor where to inject, remove, or replace text.
// It is a tagged union: pos carries From, range carries From/To, and
// lock_id carries RefLockID.
type Anchor struct {
	Type      AnchorType
	From      int
	To        int
	RefLockID string
}

// PosAnchor returns a single-point anchor at the given document position.
func PosAnchor(from int) Anchor {
	return Anchor{Type: AnchorTypePos, From: from}
}

// RangeAnchor returns a [from, to) anchor covering a text span.
func RangeAnchor(from, to int) Anchor {
	return Anchor{Type: AnchorTypeRange, From: from, To: to}
}

// LockRefAnchor returns an anchor referencing an existing locked block.
func LockRefAnchor(refLockID string) Anchor {
	return Anchor{Type: AnchorTypeLockID, RefLockID: refLockID}
}

// Validate checks the per-variant invariants.
func (a Anchor) Validate() error {
	switch a.Type {
	case AnchorTypePos:
		if a.From < 0 {
			return fmt.Errorf("pos anchor: from must be >= 0, got %d", a.From)
		}
	case AnchorTypeRange:
		if a.From < 0 {
			return fmt.Errorf("range anchor: from must be >= 0, got %d", a.From)
		}
		if a.To <= a.From {
			return fmt.Errorf("range anchor: to must be > from, got [%d, %d)", a.From, a.To)
		}
	case AnchorTypeLockID:
		if a.RefLockID == "" {
			return fmt.Errorf("lock_id anchor: ref_lock_id must be non-empty")
		}
	default:
		return fmt.Errorf("unknown anchor type: %q", a.Type)
	}
	return nil
}

type posAnchorJSON struct {
	Type AnchorType `json:"type"`
	From int        `json:"from"`
}

type rangeAnchorJSON struct {
	Type AnchorType `json:"type"`
	From int        `json:"from"`
	To   int        `json:"to"`
}

type lockAnchorJSON struct {
	Type      AnchorType `json:"type"`
	RefLockID string     `json:"ref_lock_id"`
}

// MarshalJSON emits only the fields belonging to the anchor's variant.
func (a Anchor) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case AnchorTypePos:
		return json.Marshal(posAnchorJSON{Type: a.Type, From: a.From})
	case AnchorTypeRange:
		return json.Marshal(rangeAnchorJSON{Type: a.Type, From: a.From, To: a.To})
	case AnchorTypeLockID:
		return json.Marshal(lockAnchorJSON{Type: a.Type, RefLockID: a.RefLockID})
	default:
		return nil, fmt.Errorf("cannot marshal anchor with unknown type %q", a.Type)
	}
}

// UnmarshalJSON decodes any of the three variants by its type tag.
func (a *Anchor) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      AnchorType `json:"type"`
		From      *int       `json:"from"`
		To        *int       `json:"to"`
		RefLockID string     `json:"ref_lock_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case AnchorTypePos:
		if raw.From == nil {
			return fmt.Errorf("pos anchor: missing from")
		}
		*a = PosAnchor(*raw.From)
	case AnchorTypeRange:
		if raw.From == nil || raw.To == nil {
			return fmt.Errorf("range anchor: missing from/to")
		}
		*a = RangeAnchor(*raw.From, *raw.To)
	case AnchorTypeLockID:
		*a = LockRefAnchor(raw.RefLockID)
	default:
		return fmt.Errorf("unknown anchor type: %q", raw.Type)
	}
	return a.Validate()
}

// ClientMeta carries the editor state the intervention is anchored against.
type ClientMeta struct {
	DocVersion    int `json:"doc_version"`
	SelectionFrom int `json:"selection_from"`
	SelectionTo   int `json:"selection_to"`
}

// Cursor returns the effective cursor position: selection end when the
// client reports one, the selection start otherwise.
func (m ClientMeta) Cursor() int {
	if m.SelectionTo > 0 {
		return m.SelectionTo
	}
	return m.SelectionFrom
}

// InterventionRequest is the immutable per-call input.
type InterventionRequest struct {
	Context    string     `json:"context"`
	Mode       Mode       `json:"mode"`
	ClientMeta ClientMeta `json:"client_meta"`
}

// Validate rejects malformed requests before any network call happens.
func (r InterventionRequest) Validate() error {
	if r.Context == "" {
		return fmt.Errorf("context cannot be empty")
	}
	if n := utf8.RuneCountInString(r.Context); n > MaxContextRunes {
		return fmt.Errorf("context too long: %d runes, max %d", n, MaxContextRunes)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("invalid mode: %q", r.Mode)
	}
	if r.ClientMeta.DocVersion < 0 {
		return fmt.Errorf("doc_version must be >= 0")
	}
	if r.ClientMeta.SelectionFrom < 0 || r.ClientMeta.SelectionTo < 0 {
		return fmt.Errorf("selection positions must be >= 0")
	}
	return nil
}

// Draft is the minimal action+content pair returned by a backend before
// domain invariants are applied. It never leaves the adapter layer.
type Draft struct {
	Action  Action `json:"action"`
	Content string `json:"content,omitempty"`
}

// InterventionResponse is the finalized intervention handed to the client,
// the idempotency cache, and the audit store. Corrections happen before
// finalization; the value is never mutated afterwards.
type InterventionResponse struct {
	Action   Action    `json:"action"`
	Content  string    `json:"content,omitempty"`
	LockID   string    `json:"lock_id,omitempty"`
	Anchor   Anchor    `json:"anchor"`
	ActionID string    `json:"action_id"`
	Source   Mode      `json:"source"`
	IssuedAt time.Time `json:"issued_at"`
}

// Validate enforces the cross-field invariants of a finalized response:
// provoke/rewrite carry content and a lock, delete carries neither and
// always targets a range, rewrite always targets a range.
func (r InterventionResponse) Validate() error {
	if !r.Action.Valid() {
		return fmt.Errorf("invalid action: %q", r.Action)
	}
	if err := r.Anchor.Validate(); err != nil {
		return err
	}

	switch r.Action {
	case ActionProvoke, ActionRewrite:
		if r.Content == "" {
			return fmt.Errorf("%s requires non-empty content", r.Action)
		}
		if r.LockID == "" {
			return fmt.Errorf("%s requires a lock_id", r.Action)
		}
	case ActionDelete:
		if r.Content != "" || r.LockID != "" {
			return fmt.Errorf("delete must not carry content or lock_id")
		}
	}

	if r.Action == ActionDelete || r.Action == ActionRewrite {
		if r.Anchor.Type != AnchorTypeRange {
			return fmt.Errorf("%s requires a range anchor, got %q", r.Action, r.Anchor.Type)
		}
	}

	if r.ActionID == "" {
		return fmt.Errorf("action_id must be populated")
	}
	return nil
}
