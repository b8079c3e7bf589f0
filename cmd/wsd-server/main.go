package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straja-ai/wsd/internal/app"
	"github.com/straja-ai/wsd/internal/artifact"
	"github.com/straja-ai/wsd/internal/config"
	"github.com/straja-ai/wsd/internal/logging"
	"github.com/straja-ai/wsd/internal/server"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "wsd.yaml", "Path to wsd config file")
	verify := flag.Bool("verify", true, "verify artifact checksums against manifest.json at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *verify, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, verify bool, logger *slog.Logger) error {
	tel, err := app.NewTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tel.Shutdown(shutdownCtx)
	}()

	artifacts, err := app.OpenArtifacts(ctx, cfg.Artifacts)
	if err != nil {
		return fmt.Errorf("open artifacts: %w", err)
	}
	defer artifacts.Close()

	if verify && artifacts.Dir != nil {
		if err := verifyArtifacts(artifacts.Dir.Dir(), logger); err != nil {
			return err
		}
	}

	predictor, err := app.NewPredictor(cfg, artifacts.Store, tel, logger)
	if err != nil {
		return fmt.Errorf("build predictor: %w", err)
	}

	auditor, err := app.NewAudit(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("audit setup: %w", err)
	}
	defer auditor.Close(context.Background())

	srv := server.New(cfg.Server, predictor,
		server.WithTelemetry(tel),
		server.WithAudit(auditor),
		server.WithLogger(logger),
	)
	return srv.Start(ctx, cfg.Server.Addr)
}

// verifyArtifacts checks manifest.json checksums. A missing manifest is
// logged and tolerated.
func verifyArtifacts(dir string, logger *slog.Logger) error {
	m, err := artifact.VerifyManifest(dir)
	switch {
	case errors.Is(err, artifact.ErrManifestNotFound):
		logger.Warn("no artifact manifest; skipping verification", "dir", dir)
		return nil
	case err != nil:
		return fmt.Errorf("artifact verification: %w", err)
	}
	logger.Info("artifacts verified", "run_id", m.RunID, "created_at", m.CreatedAt, "files", len(m.Files), "words", len(m.Words))
	return nil
}
