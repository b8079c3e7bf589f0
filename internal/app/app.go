package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/straja-ai/wsd/internal/artifact"
	"github.com/straja-ai/wsd/internal/audit"
	"github.com/straja-ai/wsd/internal/classifier"
	"github.com/straja-ai/wsd/internal/config"
	"github.com/straja-ai/wsd/internal/features"
	"github.com/straja-ai/wsd/internal/rules"
	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/telemetry"
	"github.com/straja-ai/wsd/internal/training"
	"github.com/straja-ai/wsd/internal/wsd"
)

// Version is stamped into telemetry resources.
var Version = "dev"

// Artifacts is the configured artifact backend.
type Artifacts struct {
	Store  artifact.Store
	Writer artifact.Writer
	// Dir is set for the dir backend; manifests are only written there.
	Dir   *artifact.DirStore
	close func() error
}

// OpenArtifacts builds the backend named by cfg.Backend. Loads go through
// an in-process cache unless cfg.DisableCache is set.
func OpenArtifacts(ctx context.Context, cfg config.ArtifactsConfig) (*Artifacts, error) {
	a := &Artifacts{close: func() error { return nil }}

	switch cfg.Backend {
	case "dir", "":
		dir, err := artifact.NewDirStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		a.Store, a.Writer, a.Dir = dir, dir, dir
	case "sqlite":
		db, err := artifact.OpenSQLite(ctx, cfg.SQLitePath, cfg.Dir)
		if err != nil {
			return nil, err
		}
		a.Store, a.Writer, a.close = db, db, db.Close
	case "memory":
		mem := artifact.NewMemStore()
		a.Store, a.Writer = mem, mem
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}

	if !cfg.DisableCache && cfg.Backend != "memory" {
		a.Store = artifact.Cached(a.Store)
	}
	return a, nil
}

func (a *Artifacts) Close() error {
	if a == nil || a.close == nil {
		return nil
	}
	return a.close()
}

// NewRegistry registers the built-in rule of every configured word.
func NewRegistry(words []string) (*wsd.Registry, error) {
	builtin := make(map[sense.Word]rules.Rule)
	for _, r := range rules.Builtin() {
		builtin[r.Word()] = r
	}

	reg := wsd.NewRegistry()
	for _, w := range words {
		word := sense.Word(w).Normalize()
		rule, ok := builtin[word]
		if !ok {
			return nil, fmt.Errorf("%w: no rule set for %q", sense.ErrUnsupportedWord, w)
		}
		if err := reg.Register(word, wsd.Entry{Rule: rule}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// NewPredictor wires the registry, store, telemetry and logger.
func NewPredictor(cfg *config.Config, store artifact.Store, tel *telemetry.Provider, logger *slog.Logger) (*wsd.Predictor, error) {
	reg, err := NewRegistry(cfg.Words)
	if err != nil {
		return nil, err
	}
	opts := []wsd.Option{
		wsd.WithWorkers(cfg.Predictor.Workers),
		wsd.WithLogger(logger),
	}
	if tel != nil {
		opts = append(opts, wsd.WithRecorder(tel))
	}
	return wsd.New(reg, store, opts...), nil
}

// NewTelemetry maps the telemetry section onto a provider.
func NewTelemetry(ctx context.Context, cfg config.TelemetryConfig) (*telemetry.Provider, error) {
	return telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Enabled,
		Endpoint: cfg.Endpoint,
		Protocol: cfg.Protocol,
		Service:  cfg.Service,
		Version:  Version,
	})
}

// TrainingOptions maps the training section onto training.Options.
func TrainingOptions(cfg config.TrainingConfig) training.Options {
	return training.Options{
		TFIDF: features.TFIDFConfig{
			NgramMin:    cfg.NgramMin,
			NgramMax:    cfg.NgramMax,
			MinDF:       cfg.MinDF,
			MaxDF:       cfg.MaxDF,
			SublinearTF: cfg.SublinearTF,
		},
		Logistic: classifier.LogisticConfig{
			C:       cfg.C,
			MaxIter: cfg.MaxIter,
		},
		Folds:   cfg.Folds,
		Seed:    cfg.Seed,
		Workers: cfg.Workers,
	}
}

// NewAudit starts an emitter over the configured sinks, or returns nil
// when auditing is off.
func NewAudit(cfg config.AuditConfig, logger *slog.Logger) (*audit.Emitter, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	var sinks []audit.Sink
	if cfg.FilePath != "" {
		fs, err := audit.NewFileSink(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("audit file sink: %w", err)
		}
		sinks = append(sinks, fs)
	}
	if cfg.WebhookURL != "" {
		ws, err := audit.NewWebhookSink(audit.WebhookConfig{
			URL:     cfg.WebhookURL,
			Token:   cfg.WebhookToken,
			Timeout: cfg.WebhookTimeout,
			Retries: cfg.WebhookRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("audit webhook sink: %w", err)
		}
		sinks = append(sinks, ws)
	}
	return audit.NewEmitter(audit.EmitterConfig{
		QueueSize:       cfg.QueueSize,
		Workers:         cfg.Workers,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	}, sinks), nil
}
