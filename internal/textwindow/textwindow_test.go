package textwindow

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name    string
		context string
		want    []string
	}{
		{
			name:    "chinese punctuation",
			context: "他打开门。犹豫着要不要进去？他进去了！",
			want:    []string{"他打开门。", "犹豫着要不要进去？", "他进去了！"},
		},
		{
			name:    "ascii punctuation",
			context: "He opened the door. He hesitated!",
			want:    []string{"He opened the door.", " He hesitated!"},
		},
		{
			name:    "newline boundary",
			context: "第一行\n第二行",
			want:    []string{"第一行\n", "第二行"},
		},
		{
			name:    "unterminated tail kept",
			context: "完整的句子。还没写完的",
			want:    []string{"完整的句子。", "还没写完的"},
		},
		{
			name:    "whitespace only fragments dropped",
			context: "句子。   \n  。",
			want:    []string{"句子。"},
		},
		{
			name:    "empty context",
			context: "   ",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.context)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitSentences() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("fragment[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLastSentenceLength(t *testing.T) {
	tests := []struct {
		name    string
		context string
		want    int
	}{
		{"empty returns min", "", DefaultMinLength},
		{"short sentence clamped up", "嗯。", DefaultMinLength},
		{"counts runes not bytes", "前文。" + strings.Repeat("字", 20) + "。", 21},
		{"long sentence clamped down", strings.Repeat("字", 500), DefaultMaxLength},
		{"leading whitespace stripped", "前文。   " + strings.Repeat("字", 19) + "。", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastSentenceLength(tt.context, DefaultMinLength, DefaultMaxLength); got != tt.want {
				t.Errorf("LastSentenceLength(%q) = %d, want %d", tt.context, got, tt.want)
			}
		})
	}
}

func TestLastSentenceAnchor(t *testing.T) {
	// 50-rune context ending in a sentence boundary; the final sentence is
	// 24 runes, so the window reaches back exactly that far.
	context := strings.Repeat("字", 25) + "。" + strings.Repeat("句", 23) + "。"
	from, to := LastSentenceAnchor(100, context)
	if to != 100 {
		t.Errorf("to = %d, want 100", to)
	}
	length := to - from
	if length < DefaultMinLength || length > DefaultMaxLength {
		t.Errorf("sentence length %d outside [%d, %d]", length, DefaultMinLength, DefaultMaxLength)
	}
	if from != 100-24 {
		t.Errorf("from = %d, want %d", from, 100-24)
	}
}

func TestLastSentenceAnchorClampsAtZero(t *testing.T) {
	from, to := LastSentenceAnchor(5, "短。")
	if from != 0 {
		t.Errorf("from = %d, want 0", from)
	}
	if to != 5 {
		t.Errorf("to = %d, want 5", to)
	}

	from, to = LastSentenceAnchor(-3, "短。")
	if from != 0 || to != 0 {
		t.Errorf("negative cursor: (from, to) = (%d, %d), want (0, 0)", from, to)
	}
}
