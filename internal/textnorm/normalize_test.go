package textnorm

import (
	"strings"
	"testing"

	"github.com/straja-ai/wsd/internal/sense"
)

func TestNormalizeRemovesTargetWord(t *testing.T) {
	cases := []string{
		"The Director approved the budget.",
		"Two directors and one DIRECTOR met",
		"directors",
		"director director directors",
	}
	for _, s := range cases {
		got := Normalize(s, sense.Director)
		for _, tok := range strings.Fields(got) {
			if tok == "director" || tok == "directors" {
				t.Fatalf("Normalize(%q) = %q still contains target token", s, got)
			}
		}
	}
}

func TestNormalizeKeepsPunctuationAttached(t *testing.T) {
	got := Normalize("Ask the director, please", sense.Director)
	if got != "ask the director, please" {
		t.Fatalf("unexpected %q", got)
	}

	// No punctuation stripping: "director," is not the bare target token.
	got = Normalize("the director, again", sense.Director)
	if got != "the director, again" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestNormalizeAllRemoved(t *testing.T) {
	if got := Normalize("  Rubbish \t rubbishs ", sense.Rubbish); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := Normalize("", sense.Rubbish); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	got := Normalize("Paid\tOVERTIME   on\nSunday", sense.Overtime)
	if got != "paid on sunday" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestNormalizeAllPreservesOrder(t *testing.T) {
	in := []string{"A director", "B", "C directors here"}
	got := NormalizeAll(in, sense.Director)
	want := []string{"a", "b", "c here"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestLowerUnicode(t *testing.T) {
	if got := Lower("ÉCOLE Straße"); got != "école straße" {
		t.Fatalf("unexpected %q", got)
	}
}
