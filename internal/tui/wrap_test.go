package tui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestWrapTextBreaksOnSpaces(t *testing.T) {
	got := wrapText("set the delays so that detonator one fires first", 16)
	want := "set the delays\nso that\ndetonator one\nfires first"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapTextKeepsParagraphs(t *testing.T) {
	got := wrapText("Task:\n\nfire in order", 40)
	if got != "Task:\n\nfire in order" {
		t.Fatalf("unexpected wrap %q", got)
	}
}

func TestWrapTextSplitsLongWords(t *testing.T) {
	got := wrapText("abcdefghij", 4)
	if got != "abcd\nefgh\nij" {
		t.Fatalf("unexpected wrap %q", got)
	}
}

func TestWrapTextWideRunes(t *testing.T) {
	got := wrapText("雷管雷管 雷管", 8)
	for _, line := range strings.Split(got, "\n") {
		if runewidth.StringWidth(line) > 8 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
	if got != "雷管雷管\n雷管" {
		t.Fatalf("unexpected wrap %q", got)
	}
}

func TestClipLine(t *testing.T) {
	if got := clipLine("detonator", 6); got != "det..." {
		t.Fatalf("unexpected clip %q", got)
	}
	if got := clipLine("abc", 10); got != "abc" {
		t.Fatalf("expected untouched line, got %q", got)
	}
	if got := clipLine("abcdef", 2); got != "ab" {
		t.Fatalf("unexpected short clip %q", got)
	}
}

func TestWrapTextZeroWidth(t *testing.T) {
	if got := wrapText("a b", 0); got != "a b" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
