package markdown

import (
	"reflect"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Chapter 1: The Start  ", "chapter-1-the-start"},
		{"a -- b", "a-b"},
		{"What's up?", "whats-up"},
		{"snake_case stays", "snake_case-stays"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateTOC(t *testing.T) {
	md := "# Intro\ntext\n## Setup\n## Setup\n### Deep Dive\nnot # a heading"

	toc, content := GenerateTOC(md)

	wantTOC := strings.Join([]string{
		"- [Intro](#intro)",
		"  - [Setup](#setup)",
		"  - [Setup](#setup-2)",
		"    - [Deep Dive](#deep-dive)",
	}, "\n")
	if toc != wantTOC {
		t.Errorf("toc =\n%s\nwant\n%s", toc, wantTOC)
	}

	wantContent := "# Intro {#intro}\ntext\n## Setup {#setup}\n## Setup {#setup-2}\n### Deep Dive {#deep-dive}\nnot # a heading"
	if content != wantContent {
		t.Errorf("content =\n%s\nwant\n%s", content, wantContent)
	}
}

func TestGenerateTOCWithoutHeadings(t *testing.T) {
	toc, content := GenerateTOC("plain text")
	if toc != "" || content != "plain text" {
		t.Errorf("got (%q, %q)", toc, content)
	}
}

func TestHeadings(t *testing.T) {
	got := Headings("# A\n# A\n# A")
	want := []Heading{
		{Level: 1, Text: "A", Slug: "a"},
		{Level: 1, Text: "A", Slug: "a-2"},
		{Level: 1, Text: "A", Slug: "a-3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Headings = %+v", got)
	}
}

func TestWithTOC(t *testing.T) {
	got := WithTOC("# Title")
	want := "- [Title](#title)\n\n---\n\n# Title {#title}"
	if got != want {
		t.Errorf("WithTOC = %q", got)
	}
}

func TestCorrect(t *testing.T) {
	in := "# Title   \n* one\n+ two\n  * nested\t\n- three\n*emphasis*"
	want := "# Title\n- one\n- two\n  - nested\n- three\n*emphasis*"
	if got := Correct(in); got != want {
		t.Errorf("Correct =\n%q\nwant\n%q", got, want)
	}
}

func TestCharacterCount(t *testing.T) {
	if n := CharacterCount("héllo"); n != 5 {
		t.Errorf("CharacterCount = %d, want 5", n)
	}
	if n := CharacterCount(""); n != 0 {
		t.Errorf("CharacterCount(empty) = %d", n)
	}
}
