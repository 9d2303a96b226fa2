package content

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlainTextStripsMarkdown(t *testing.T) {
	input := "# Shipping **fast**\n\nWe use _queues_ and `redis`.\n\n```go\nfmt.Println(\"skip\")\n```\n\n- one\n- two\n\n![diagram](/x.png)\n<div>raw</div>\n"
	got := PlainText(input)
	want := "Shipping fast We use queues and redis. one two"
	if got != want {
		t.Fatalf("unexpected plain text:\n got=%q\nwant=%q", got, want)
	}
}

func TestPlainTextEmpty(t *testing.T) {
	if PlainText("   \n") != "" {
		t.Fatalf("expected empty plain text")
	}
}

func TestExcerptTruncatesOnWordBoundary(t *testing.T) {
	input := "Designing systems for small teams means choosing boring technology first."
	got := Excerpt(input, 30)
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if utf8.RuneCountInString(got) > 31 {
		t.Fatalf("excerpt too long: %q", got)
	}
	if strings.Contains(got, "mea…") {
		t.Fatalf("expected word boundary cut, got %q", got)
	}
}

func TestExcerptKeepsShortText(t *testing.T) {
	if got := Excerpt("Short *note*", 100); got != "Short note" {
		t.Fatalf("unexpected excerpt: %q", got)
	}
}
