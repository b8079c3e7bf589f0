package wsd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/straja-ai/wsd/internal/artifact"
	"github.com/straja-ai/wsd/internal/fallback"
	"github.com/straja-ai/wsd/internal/rules"
	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/textnorm"
)

// Source says which stage produced a label.
type Source string

const (
	SourceRule  Source = "rule"
	SourceModel Source = "model"
)

// Decision is the outcome for one sentence.
type Decision struct {
	Label  sense.Label `json:"label"`
	Source Source      `json:"source"`
	// Normalized is the classifier input; set only when the model decided.
	Normalized string      `json:"normalized,omitempty"`
	Cues       rules.Match `json:"cues"`
}

// Recorder observes batches and per-sentence decisions.
type Recorder interface {
	StartBatch(ctx context.Context, word sense.Word, size int) (context.Context, func(err error))
	RecordDecision(ctx context.Context, word sense.Word, source string)
	// Annotate attaches batch details (artifact key, per-source counts,
	// load failures) to the batch started in ctx.
	Annotate(ctx context.Context, values map[string]any)
}

type noopRecorder struct{}

func (noopRecorder) StartBatch(ctx context.Context, _ sense.Word, _ int) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (noopRecorder) RecordDecision(context.Context, sense.Word, string) {}

func (noopRecorder) Annotate(context.Context, map[string]any) {}

// Predictor is the batch entry point. It is safe for concurrent use.
type Predictor struct {
	registry *Registry
	store    artifact.Store
	workers  int
	logger   *slog.Logger
	recorder Recorder
}

type Option func(*Predictor)

// WithWorkers decides sentences of one batch on up to n goroutines.
func WithWorkers(n int) Option {
	return func(p *Predictor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Predictor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(p *Predictor) {
		if r != nil {
			p.recorder = r
		}
	}
}

// New builds a predictor over registry with artifacts from store.
func New(registry *Registry, store artifact.Store, opts ...Option) *Predictor {
	p := &Predictor{
		registry: registry,
		store:    store,
		workers:  1,
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Words lists the supported words.
func (p *Predictor) Words() []sense.Word {
	return p.registry.Words()
}

// Predict returns one label per sentence, in input order.
func (p *Predictor) Predict(ctx context.Context, word sense.Word, sentences []string) ([]sense.Label, error) {
	decisions, err := p.run(ctx, word, sentences, false)
	if err != nil {
		return nil, err
	}
	labels := make([]sense.Label, len(decisions))
	for i, d := range decisions {
		labels[i] = d.Label
	}
	return labels, nil
}

// Explain is Predict with the stage and matched cues for every sentence.
func (p *Predictor) Explain(ctx context.Context, word sense.Word, sentences []string) ([]Decision, error) {
	return p.run(ctx, word, sentences, true)
}

func (p *Predictor) Director(ctx context.Context, sentences []string) ([]sense.Label, error) {
	return p.Predict(ctx, sense.Director, sentences)
}

func (p *Predictor) Overtime(ctx context.Context, sentences []string) ([]sense.Label, error) {
	return p.Predict(ctx, sense.Overtime, sentences)
}

func (p *Predictor) Rubbish(ctx context.Context, sentences []string) ([]sense.Label, error) {
	return p.Predict(ctx, sense.Rubbish, sentences)
}

func (p *Predictor) run(ctx context.Context, word sense.Word, sentences []string, explain bool) (out []Decision, err error) {
	word = word.Normalize()
	entry, err := p.registry.Lookup(word)
	if err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return []Decision{}, nil
	}

	ctx, finish := p.recorder.StartBatch(ctx, word, len(sentences))
	defer func() { finish(err) }()

	// Artifacts are loaded at most once per batch and only if a rule defers.
	pair := &lazyPair{load: func() (artifact.Pair, error) {
		p.logger.Debug("loading artifacts", "word", word, "key", entry.ArtifactKey)
		pr, err := p.store.Load(ctx, entry.ArtifactKey)
		if err != nil {
			p.recorder.Annotate(ctx, map[string]any{"wsd.artifact_key": entry.ArtifactKey, "wsd.artifact_error": err})
			return artifact.Pair{}, fmt.Errorf("%s: %w", word, err)
		}
		p.recorder.Annotate(ctx, map[string]any{"wsd.artifact_key": entry.ArtifactKey, "wsd.artifact_loaded": true})
		return pr, nil
	}}

	out = make([]Decision, len(sentences))
	if p.workers <= 1 || len(sentences) == 1 {
		for i, s := range sentences {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d, err := p.decide(ctx, word, entry, s, pair, explain)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i, s := range sentences {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				d, err := p.decide(gctx, word, entry, s, pair, explain)
				if err != nil {
					return err
				}
				out[i] = d
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	counts, err := tally(out, len(sentences))
	if err != nil {
		return nil, err
	}
	p.recorder.Annotate(ctx, map[string]any{
		"wsd.rule_decisions":  counts[SourceRule],
		"wsd.model_decisions": counts[SourceModel],
	})
	return out, nil
}

// tally counts decisions by source and fails unless every one of the n
// sentences received a valid label.
func tally(out []Decision, n int) (map[Source]int, error) {
	counts := map[Source]int{}
	decided := 0
	for _, d := range out {
		if d.Label.Valid() {
			decided++
			counts[d.Source]++
		}
	}
	if len(out) != n || decided != n {
		return nil, fmt.Errorf("%w: %d labels for %d sentences", sense.ErrLengthMismatch, decided, n)
	}
	return counts, nil
}

// decide runs the rule and defers to the model only when the rule is silent.
func (p *Predictor) decide(ctx context.Context, word sense.Word, entry Entry, sentence string, pair *lazyPair, explain bool) (Decision, error) {
	var d Decision
	if explain {
		d.Cues = rules.Explain(entry.Rule, sentence)
	}

	if label := entry.Rule.Decide(sentence); label.Valid() {
		d.Label, d.Source = label, SourceRule
		p.recorder.RecordDecision(ctx, word, string(SourceRule))
		return d, nil
	}

	pr, err := pair.get()
	if err != nil {
		return Decision{}, err
	}
	normalized := textnorm.Normalize(sentence, word)
	label, err := fallback.Predict(pr, normalized)
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", word, err)
	}
	p.logger.Debug("rule deferred to model", "word", word, "label", int(label))
	p.recorder.RecordDecision(ctx, word, string(SourceModel))

	d.Label, d.Source = label, SourceModel
	if explain {
		d.Normalized = normalized
	}
	return d, nil
}

type lazyPair struct {
	once sync.Once
	load func() (artifact.Pair, error)
	pair artifact.Pair
	err  error
}

func (l *lazyPair) get() (artifact.Pair, error) {
	l.once.Do(func() { l.pair, l.err = l.load() })
	return l.pair, l.err
}
