package channel

import (
	"strings"
	"testing"
)

func TestSplitMessageShortTextUntouched(t *testing.T) {
	t.Parallel()
	parts := SplitMessage("hello\n\nworld", 100)
	if len(parts) != 1 || parts[0] != "hello\n\nworld" {
		t.Fatalf("short text must pass through unchanged, got %q", parts)
	}
}

func TestSplitMessagePrefersParagraphBoundaries(t *testing.T) {
	t.Parallel()

	a := strings.Repeat("a", 40)
	b := strings.Repeat("b", 40)
	c := strings.Repeat("c", 40)
	text := a + "\n\n" + b + "\n\n" + c

	parts := SplitMessage(text, 90)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d: %q", len(parts), parts)
	}
	if parts[0] != a+"\n\n"+b {
		t.Fatalf("first part should hold two paragraphs, got %q", parts[0])
	}
	if parts[1] != c {
		t.Fatalf("second part = %q", parts[1])
	}
}

func TestSplitMessageParagraphAtExactLimit(t *testing.T) {
	t.Parallel()

	a := strings.Repeat("a", 100)
	b := strings.Repeat("b", 100)
	parts := SplitMessage(a+"\n\n"+b, 100)
	if len(parts) != 2 || parts[0] != a || parts[1] != b {
		t.Fatalf("limit-sized paragraphs must each form one part, got %d parts", len(parts))
	}
}

func TestSplitMessageFallsBackToLines(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, strings.Repeat("x", 30))
	}
	para := strings.Join(lines, "\n")

	parts := SplitMessage(para, 100)
	if len(parts) < 2 {
		t.Fatalf("oversized paragraph must split, got %d parts", len(parts))
	}
	for i, p := range parts {
		if len([]rune(p)) > 100 {
			t.Fatalf("part %d exceeds limit: %d runes", i, len([]rune(p)))
		}
		if strings.Contains(p, "\n\n") {
			t.Fatalf("line-split part %d contains a paragraph break: %q", i, p)
		}
	}
	joined := strings.Join(parts, "\n")
	if strings.Count(joined, "x") != strings.Count(para, "x") {
		t.Fatal("splitting lost content")
	}
}

func TestSplitMessageHardCutsOversizedLine(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("é", 250) // multibyte: limits are rune counts
	parts := SplitMessage(line, 100)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	total := 0
	for i, p := range parts {
		n := len([]rune(p))
		if n > 100 {
			t.Fatalf("part %d exceeds limit: %d runes", i, n)
		}
		total += n
	}
	if total != 250 {
		t.Fatalf("hard cut lost runes: %d/250", total)
	}
}
