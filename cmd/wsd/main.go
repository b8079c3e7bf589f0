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

	"github.com/straja-ai/wsd/internal/app"
	"github.com/straja-ai/wsd/internal/config"
	"github.com/straja-ai/wsd/internal/corpus"
	"github.com/straja-ai/wsd/internal/logging"
	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/wsd"
)

func main() {
	configPath := flag.String("config", "wsd.yaml", "Path to wsd config file")
	word := flag.String("word", "", "target word to disambiguate")
	in := flag.String("in", "", "input file, one sentence per line (default from batch.input)")
	out := flag.String("out", "", "output file, one label per line (default from batch.output)")
	all := flag.Bool("all", false, "run every configured word using the batch patterns")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)

	if !*all && *word == "" {
		logger.Error("either -word or -all is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	words := []string{*word}
	if *all {
		words = cfg.Words
	}
	var inPath, outPath string
	if !*all {
		inPath, outPath = *in, *out
	}
	if err := run(ctx, cfg, words, inPath, outPath, logger); err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

// run predicts every word's batch file. inOverride and outOverride replace
// the configured patterns when set. Failures of individual words are joined.
func run(ctx context.Context, cfg *config.Config, words []string, inOverride, outOverride string, logger *slog.Logger) error {
	artifacts, err := app.OpenArtifacts(ctx, cfg.Artifacts)
	if err != nil {
		return err
	}
	defer artifacts.Close()

	predictor, err := app.NewPredictor(cfg, artifacts.Store, nil, logger)
	if err != nil {
		return err
	}

	var errs []error
	for _, w := range words {
		inPath, outPath := cfg.Batch.Paths(w)
		if inOverride != "" {
			inPath = inOverride
		}
		if outOverride != "" {
			outPath = outOverride
		}
		if err := runWord(ctx, predictor, sense.Word(w), inPath, outPath, logger); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", w, inPath, err))
		}
	}
	return errors.Join(errs...)
}

func runWord(ctx context.Context, p *wsd.Predictor, word sense.Word, inPath, outPath string, logger *slog.Logger) error {
	sentences, err := corpus.ReadSentencesFile(inPath)
	if err != nil {
		return err
	}
	labels, err := p.Predict(ctx, word, sentences)
	if err != nil {
		return err
	}
	if err := corpus.WriteLabelsFile(outPath, labels); err != nil {
		return err
	}
	logger.Info("wrote labels", "word", word, "sentences", len(sentences), "output", outPath)
	return nil
}
