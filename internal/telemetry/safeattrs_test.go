package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/straja-ai/wsd/internal/sense"
)

func TestSafeAttributesFiltersSentenceText(t *testing.T) {
	kvs := map[string]any{
		"sentence":           "should drop",
		"wsd.sentences":      []string{"drop"},
		"wsd.normalized":     "the team worked overtime.",
		"matched_cues":       []string{"film"},
		"wsd.word":           sense.Director,
		"wsd.artifact_key":   "director",
		"long_string":        string(make([]byte, 200)),
		"wsd.batch_size":     3,
		"wsd.label":          sense.Two,
		"wsd.artifact_error": fmt.Errorf("load: %w", sense.ErrArtifactNotFound),
		"unsupported":        struct{}{},
	}

	got := map[attribute.Key]attribute.Value{}
	for _, a := range SafeAttributes(kvs) {
		got[a.Key] = a.Value
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 attributes, got %v", got)
	}
	if v := got["wsd.word"]; v.AsString() != "director" {
		t.Fatalf("wsd.word = %v", v)
	}
	if v := got["wsd.label"]; v.AsInt64() != 2 {
		t.Fatalf("wsd.label = %v", v)
	}
	if v := got["wsd.artifact_error"]; v.AsString() != "artifact_not_found" {
		t.Fatalf("wsd.artifact_error = %v", v)
	}
	for _, k := range []attribute.Key{"sentence", "wsd.normalized", "matched_cues", "long_string"} {
		if _, ok := got[k]; ok {
			t.Fatalf("attribute %s should be filtered", k)
		}
	}
}

func TestErrorClass(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("x: %w", sense.ErrUnsupportedWord), "unsupported_word"},
		{fmt.Errorf("x: %w", sense.ErrArtifactNotFound), "artifact_not_found"},
		{fmt.Errorf("x: %w", sense.ErrLengthMismatch), "length_mismatch"},
		{sense.ErrInvalidLabel, "invalid_label"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		if got := ErrorClass(tc.err); got != tc.want {
			t.Fatalf("ErrorClass(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
