package wsd

import (
	"testing"

	"github.com/straja-ai/wsd/internal/rules"
	"github.com/straja-ai/wsd/internal/sense"
)

func TestDefaultRegistryWords(t *testing.T) {
	got := DefaultRegistry().Words()
	want := []sense.Word{sense.Director, sense.Overtime, sense.Rubbish}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("bank", Entry{Rule: rules.Never("bank")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register("Bank", Entry{Rule: rules.Never("bank")}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("", Entry{Rule: rules.Never("x")}); err == nil {
		t.Fatalf("expected empty word to fail")
	}
	if err := r.Register("bank", Entry{}); err == nil {
		t.Fatalf("expected nil rule to fail")
	}
}

func TestArtifactKeyDefaultsToWord(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("bank", Entry{Rule: rules.Never("bank")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register("banks", Entry{Rule: rules.Never("banks"), ArtifactKey: "bank"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, err := r.Lookup("bank")
	if err != nil || e.ArtifactKey != "bank" {
		t.Fatalf("unexpected entry %+v err=%v", e, err)
	}
	e, err = r.Lookup("banks")
	if err != nil || e.ArtifactKey != "bank" {
		t.Fatalf("unexpected entry %+v err=%v", e, err)
	}
}
