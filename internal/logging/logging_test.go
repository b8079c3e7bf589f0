package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/straja-ai/wsd/internal/config"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LogConfig{Level: "info", Format: "json"})
	logger.Info("trained", "word", "overtime")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("json handler should produce valid JSON: %v", err)
	}
	if m["word"] != "overtime" || m["msg"] != "trained" {
		t.Fatalf("unexpected record %v", m)
	}
}

func TestTextFormatAddsSource(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "text"})
	logger.Debug("rule deferred to model")
	if !strings.Contains(buf.String(), "source=") {
		t.Fatalf("text format should include source, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn, got %q", buf.String())
	}
	logger.Warn("shown")
	if buf.Len() == 0 {
		t.Fatalf("warn should be written")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := New(config.LogConfig{Level: "info", Format: "json"})
	if slog.Default() != logger {
		t.Fatalf("New should install the logger as default")
	}
}
