// Package textwindow computes sentence-boundary character windows used to
// anchor rewrite and delete interventions. All functions are pure and
// operate on rune counts so CJK and ASCII text behave identically.
package textwindow

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Defaults for the rewrite window clamp. The minimum keeps rewrites from
// degenerating into single-character edits when punctuation is missing;
// the maximum caps how much text a single rewrite may touch.
const (
	DefaultMinLength = 12
	DefaultMaxLength = 400
)

// sentenceBoundaries are the punctuation runes that terminate a sentence.
// Newlines terminate sentences as well.
const sentenceBoundaries = "。！？!?."

func isBoundary(r rune) bool {
	return r == '\n' || strings.ContainsRune(sentenceBoundaries, r)
}

// SplitSentences splits the trailing-stripped context into rough sentence
// fragments. Each maximal run ending at a boundary rune (or at the end of
// the string) is one fragment; empty and whitespace-only fragments are
// discarded.
func SplitSentences(context string) []string {
	trimmed := strings.TrimRightFunc(context, unicode.IsSpace)
	if trimmed == "" {
		return nil
	}

	var sentences []string
	start := 0
	for idx, r := range trimmed {
		if !isBoundary(r) {
			continue
		}
		end := idx + utf8.RuneLen(r)
		if fragment := trimmed[start:end]; strings.TrimSpace(fragment) != "" {
			sentences = append(sentences, fragment)
		}
		start = end
	}

	if start < len(trimmed) {
		if fragment := trimmed[start:]; strings.TrimSpace(fragment) != "" {
			sentences = append(sentences, fragment)
		}
	}

	return sentences
}

// LastSentenceLength estimates the rune length of the sentence at the
// cursor tail, clamped to [minLength, maxLength]. When the context holds
// no sentence fragments the minimum is returned.
func LastSentenceLength(context string, minLength, maxLength int) int {
	sentences := SplitSentences(context)
	if len(sentences) == 0 {
		return minLength
	}

	candidate := strings.TrimLeftFunc(sentences[len(sentences)-1], unicode.IsSpace)
	if candidate == "" {
		return minLength
	}

	length := utf8.RuneCountInString(candidate)
	return max(minLength, min(length, maxLength))
}

// LastSentenceAnchor computes the (from, to) bounds for rewriting the
// sentence behind the cursor: to is the cursor clamped at zero, from is
// the cursor minus the last-sentence length, clamped at zero.
func LastSentenceAnchor(cursor int, context string) (from, to int) {
	return lastSentenceAnchor(cursor, context, DefaultMinLength, DefaultMaxLength)
}

func lastSentenceAnchor(cursor int, context string, minLength, maxLength int) (from, to int) {
	safeCursor := max(0, cursor)
	length := LastSentenceLength(context, minLength, maxLength)
	return max(0, safeCursor-length), safeCursor
}
