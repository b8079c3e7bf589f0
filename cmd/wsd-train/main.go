package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/straja-ai/wsd/internal/app"
	"github.com/straja-ai/wsd/internal/config"
	"github.com/straja-ai/wsd/internal/corpus"
	"github.com/straja-ai/wsd/internal/logging"
	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/training"
)

func main() {
	configPath := flag.String("config", "wsd.yaml", "Path to wsd config file")
	word := flag.String("word", "", "train only this word (default: every configured word)")
	folds := flag.Int("eval-folds", -1, "k-fold evaluation (overrides training.folds; 0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *folds >= 0 {
		cfg.Training.Folds = *folds
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *word, logger); err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, only string, logger *slog.Logger) error {
	if cfg.Artifacts.Backend == "memory" {
		return fmt.Errorf("artifacts.backend memory cannot persist a training run")
	}
	words := cfg.Words
	if only != "" {
		words = []string{only}
	}

	jobs := make([]training.Job, 0, len(words))
	for _, w := range words {
		word := sense.Word(w).Normalize()
		c, err := corpus.ParseFile(training.CorpusPath(cfg.Training.DataDir, word))
		if err != nil {
			return err
		}
		jobs = append(jobs, training.Job{Word: word, Corpus: c})
	}

	artifacts, err := app.OpenArtifacts(ctx, cfg.Artifacts)
	if err != nil {
		return err
	}
	defer artifacts.Close()

	trainer := training.NewTrainer(artifacts.Writer, app.TrainingOptions(cfg.Training), logger)
	results, err := trainer.TrainAll(ctx, jobs)
	if err != nil {
		return err
	}

	if artifacts.Dir != nil {
		m, err := training.WriteManifest(artifacts.Dir, results)
		if err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
		logger.Info("manifest written", "dir", artifacts.Dir.Dir(), "run_id", m.RunID, "files", len(m.Files))
	}

	for _, r := range results {
		line := fmt.Sprintf("%-10s sentences=%d sense1=%d sense2=%d features=%d", r.Word, r.Stats.Sentences, r.Stats.Sense1, r.Stats.Sense2, r.Stats.Features)
		if cfg.Training.Folds >= 2 {
			line += fmt.Sprintf(" cv_accuracy=%.3f", r.Stats.Accuracy)
		}
		fmt.Println(line)
	}
	return nil
}
