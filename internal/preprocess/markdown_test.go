package preprocess

import (
	"reflect"
	"strings"
	"testing"
)

func TestClean_RemovesImages(t *testing.T) {
	got := Clean("before ![diagram](img.png) after")
	if strings.Contains(got, "img.png") || strings.Contains(got, "diagram") {
		t.Errorf("Expected image removed, got %q", got)
	}
	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Errorf("Expected surrounding text kept, got %q", got)
	}
}

func TestClean_RemovesJavascriptLinks(t *testing.T) {
	got := Clean("a [menu](javascript:void(0)) b")
	if strings.Contains(got, "menu") || strings.Contains(got, "javascript") {
		t.Errorf("Expected javascript link dropped entirely, got %q", got)
	}
}

func TestClean_RemovesEmptyLinks(t *testing.T) {
	got := Clean("[  ](https://site.example/) tail")
	if got != "tail" {
		t.Errorf("Expected %q, got %q", "tail", got)
	}
}

func TestClean_UnwrapsLinksToText(t *testing.T) {
	got := Clean("see [the docs](https://docs.example) now")
	if got != "see the docs now" {
		t.Errorf("Expected link collapsed to text, got %q", got)
	}
}

func TestClean_StripsEmphasis(t *testing.T) {
	got := Clean("**bold** and `code` and *italic*")
	if got != "bold and code and italic" {
		t.Errorf("Expected emphasis stripped, got %q", got)
	}
}

func TestClean_KeepsLineLeadingHeadings(t *testing.T) {
	got := Clean("## Overview **x**\n\nBody with #inline marker")
	want := "## Overview x\n\nBody with inline marker"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestClean_CollapsesBlankRuns(t *testing.T) {
	got := Clean("alpha\n\n\n\n\nbeta")
	if got != "alpha\n\nbeta" {
		t.Errorf("Expected blank runs collapsed, got %q", got)
	}
}

func TestSections_SplitsAtHeadings(t *testing.T) {
	md := "# One\nalpha\nbeta\n# Two\ngamma"
	got := Sections(md)

	want := []Section{
		{Title: "One", Content: []string{"alpha", "beta"}},
		{Title: "Two", Content: []string{"gamma"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSections_DropsPreamble(t *testing.T) {
	got := Sections("intro text\n# One\nbody")
	if len(got) != 1 || got[0].Title != "One" {
		t.Fatalf("Expected one section after preamble, got %+v", got)
	}
	for _, line := range got[0].Content {
		if strings.Contains(line, "intro") {
			t.Errorf("Expected preamble dropped, got %+v", got[0].Content)
		}
	}
}

func TestSections_DropsEmptyHeading(t *testing.T) {
	got := Sections("# Empty\n# Full\nbody")
	if len(got) != 1 || got[0].Title != "Full" {
		t.Errorf("Expected heading with no content dropped, got %+v", got)
	}
}

func TestSections_GeneralFallback(t *testing.T) {
	md := "just prose\nmore prose"
	got := Sections(md)
	if len(got) != 1 || got[0].Title != "General" {
		t.Fatalf("Expected single General section, got %+v", got)
	}
	if !reflect.DeepEqual(got[0].Content, []string{"just prose", "more prose"}) {
		t.Errorf("Expected whole document as content, got %+v", got[0].Content)
	}
}

func TestSections_TrimsHeadingMarkers(t *testing.T) {
	got := Sections("##   Spaced Title  \nbody")
	if len(got) != 1 || got[0].Title != "Spaced Title" {
		t.Errorf("Expected trimmed title, got %+v", got)
	}
}
