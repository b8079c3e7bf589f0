package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/straja-ai/wsd/internal/config"
)

// New builds a logger from cfg, writes to os.Stderr and installs it as
// the slog default.
//
// Format "json" produces structured output; "text" adds source locations.
// Unknown levels fall back to info.
func New(cfg config.LogConfig) *slog.Logger {
	logger := NewWithWriter(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

// NewWithWriter is New without touching the default logger.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: strings.EqualFold(cfg.Format, "text"),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
