package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if len(cfg.Words) == 0 {
		return errors.New("at least one word must be configured")
	}
	seen := make(map[string]struct{}, len(cfg.Words))
	for _, w := range cfg.Words {
		if !wordRe.MatchString(w) {
			return fmt.Errorf("word %q is not a valid identifier", w)
		}
		if _, dup := seen[w]; dup {
			return fmt.Errorf("word %q listed twice", w)
		}
		seen[w] = struct{}{}
	}

	if err := validateArtifactsConfig(cfg.Artifacts); err != nil {
		return err
	}
	if err := validateTrainingConfig(cfg.Training); err != nil {
		return err
	}

	if !strings.Contains(cfg.Batch.Input, "{word}") || !strings.Contains(cfg.Batch.Output, "{word}") {
		return errors.New("batch.input and batch.output must contain {word}")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if cfg.Server.MaxSentences <= 0 {
		return errors.New("server.max_sentences must be positive")
	}

	if err := validateLogConfig(cfg.Log); err != nil {
		return err
	}
	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}
	return validateAuditConfig(cfg.Audit)
}

func validateArtifactsConfig(a ArtifactsConfig) error {
	switch a.Backend {
	case "dir":
		if strings.TrimSpace(a.Dir) == "" {
			return errors.New("artifacts.dir must be set for the dir backend")
		}
	case "sqlite":
		if strings.TrimSpace(a.SQLitePath) == "" {
			return errors.New("artifacts.sqlite_path must be set for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("artifacts.backend must be dir, sqlite or memory, got %q", a.Backend)
	}
	return nil
}

func validateTrainingConfig(t TrainingConfig) error {
	if t.NgramMin < 1 || t.NgramMax < t.NgramMin {
		return fmt.Errorf("training ngram range (%d, %d) is invalid", t.NgramMin, t.NgramMax)
	}
	if t.MaxDF <= 0 || t.MaxDF > 1 {
		return fmt.Errorf("training.max_df must be in (0, 1], got %v", t.MaxDF)
	}
	if t.C <= 0 {
		return fmt.Errorf("training.c must be positive, got %v", t.C)
	}
	if t.Folds == 1 || t.Folds < 0 {
		return fmt.Errorf("training.folds must be 0 or at least 2, got %d", t.Folds)
	}
	return nil
}

func validateLogConfig(l LogConfig) error {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", l.Format)
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}

func validateAuditConfig(a AuditConfig) error {
	if a.WebhookRetries < 0 {
		return fmt.Errorf("audit.webhook_retries must not be negative, got %d", a.WebhookRetries)
	}
	if strings.TrimSpace(a.WebhookURL) == "" {
		return nil
	}
	u, err := url.Parse(a.WebhookURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("audit.webhook_url is invalid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("audit.webhook_url must be http or https")
	}
	return nil
}
