package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingsAndParagraphs(t *testing.T) {
	input := `# Arc 7 Chapter 1 – Initiation

Subaru woke up
in a *dark* room.

## Notes

Rem was not there.
`
	p := &MarkdownParser{}
	got, err := p.Parse(strings.NewReader(input), "arc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Arc 7 Chapter 1 – Initiation\n\nSubaru woke up\nin a dark room.\n\nNotes\n\nRem was not there."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMarkdownParser_ListsAndCode(t *testing.T) {
	input := "Intro.\n\n- first\n- second\n\n```\nraw line\n```\n"
	p := &MarkdownParser{}
	got, err := p.Parse(strings.NewReader(input), "list.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Intro.", "first\nsecond", "raw line"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	got, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}
