// Package intervention is the safety state machine between the provider
// adapters and the HTTP layer: it tags, corrects, and finalizes raw
// provider responses so that the documented invariants hold on every
// response handed to the cache or the audit store.
package intervention

import (
	"time"
	"unicode/utf8"

	"github.com/quillfire/impetus/internal/domain"
	"github.com/quillfire/impetus/internal/llm"
	"github.com/quillfire/impetus/internal/textwindow"
)

// shortDocumentRunes is the exclusive lower bound below which delete
// actions are converted to protective provokes. A 50-rune document may
// still be deleted from; a 49-rune one may not.
const shortDocumentRunes = 50

// museReengageMessage replaces the content of a delete that muse mode
// must never perform.
const museReengageMessage = "> [AI施压 - Muse]: 先别急着删，顺着这句再写一笔。"

// shortDocumentMessage replaces the content of a delete blocked by the
// short-document guard.
const shortDocumentMessage = "> [AI施压 - 保护]: 文档内容太少，继续写作吧。"

// finalize turns a raw provider response into the finalized value. It
// never mutates raw; each correction produces a new value, so the guards
// are independently testable and the returned response is safe to hand
// to the cache and the audit store.
//
// Corrections, in order: tag the generating mode as source, convert
// muse-mode deletes to provokes, convert deletes on short documents to
// protective provokes, refine rewrite anchors to sentence boundaries,
// backfill action and lock ids, stamp issued_at.
func finalize(raw *domain.InterventionResponse, req domain.InterventionRequest, now time.Time) *domain.InterventionResponse {
	resp := *raw
	resp.Source = req.Mode

	resp = applyMuseGuard(resp, req)
	resp = applyShortDocumentGuard(resp, req)
	resp = refineRewriteAnchor(resp, req)

	if resp.ActionID == "" {
		resp.ActionID = llm.NewActionID()
	}
	if (resp.Action == domain.ActionProvoke || resp.Action == domain.ActionRewrite) && resp.LockID == "" {
		resp.LockID = llm.NewLockID()
	}
	if resp.IssuedAt.IsZero() {
		resp.IssuedAt = now.UTC()
	}
	return &resp
}

// applyMuseGuard converts a muse-mode delete into a provoke. Muse must
// never delete.
func applyMuseGuard(resp domain.InterventionResponse, req domain.InterventionRequest) domain.InterventionResponse {
	if req.Mode != domain.ModeMuse || resp.Action != domain.ActionDelete {
		return resp
	}
	resp.Action = domain.ActionProvoke
	resp.Content = museReengageMessage
	resp.LockID = llm.NewLockID()
	resp.Anchor = domain.PosAnchor(max(0, req.ClientMeta.SelectionFrom))
	return resp
}

// applyShortDocumentGuard converts a delete on a document shorter than
// 50 runes into a protective provoke. Runs after the muse guard so it
// also catches loki-mode deletes.
func applyShortDocumentGuard(resp domain.InterventionResponse, req domain.InterventionRequest) domain.InterventionResponse {
	if resp.Action != domain.ActionDelete || runeCount(req.Context) >= shortDocumentRunes {
		return resp
	}
	resp.Action = domain.ActionProvoke
	resp.Content = shortDocumentMessage
	resp.LockID = llm.NewLockID()
	resp.Anchor = domain.PosAnchor(max(0, req.ClientMeta.SelectionFrom))
	return resp
}

// refineRewriteAnchor recomputes a sentence-accurate range anchor for
// rewrites. With a positive cursor the last-sentence window replaces the
// provisional anchor when it is non-empty; without one, a non-range
// anchor falls back to a one-rune range immediately behind the cursor.
func refineRewriteAnchor(resp domain.InterventionResponse, req domain.InterventionRequest) domain.InterventionResponse {
	if resp.Action != domain.ActionRewrite {
		return resp
	}

	cursor := req.ClientMeta.Cursor()
	if cursor > 0 {
		from, to := textwindow.LastSentenceAnchor(cursor, req.Context)
		if from < to {
			resp.Anchor = domain.RangeAnchor(from, to)
		}
		return resp
	}

	if resp.Anchor.Type != domain.AnchorTypeRange {
		from := max(0, cursor-1)
		resp.Anchor = domain.RangeAnchor(from, from+1)
	}
	return resp
}

func runeCount(s string) int {
	return utf8.RuneCountInString(s)
}
