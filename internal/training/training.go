package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/straja-ai/wsd/internal/artifact"
	"github.com/straja-ai/wsd/internal/classifier"
	"github.com/straja-ai/wsd/internal/corpus"
	"github.com/straja-ai/wsd/internal/features"
	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/textnorm"
)

// Options configures a training run.
type Options struct {
	TFIDF    features.TFIDFConfig
	Logistic classifier.LogisticConfig
	// Folds enables k-fold evaluation when >= 2.
	Folds int
	// Seed shuffles fold assignment; 0 keeps corpus order.
	Seed    uint64
	Workers int
}

func DefaultOptions() Options {
	return Options{
		TFIDF:    features.DefaultTFIDFConfig(),
		Logistic: classifier.DefaultLogisticConfig(),
		Workers:  1,
	}
}

// Job is one word to train.
type Job struct {
	Word   sense.Word
	Corpus *corpus.Corpus
}

// Result is the outcome of training one word.
type Result struct {
	Word    sense.Word
	Pair    artifact.Pair
	Stats   artifact.WordStats
	Elapsed time.Duration
}

// Fit normalizes the corpus for word and fits a fresh vectorizer and
// classifier on it.
func Fit(c *corpus.Corpus, word sense.Word, opts Options) (artifact.Pair, artifact.WordStats, error) {
	if c == nil || c.Len() == 0 {
		return artifact.Pair{}, artifact.WordStats{}, fmt.Errorf("%w: empty corpus", sense.ErrMalformedCorpus)
	}
	if len(c.Sentences) != len(c.Labels) {
		return artifact.Pair{}, artifact.WordStats{}, fmt.Errorf("%w: %d sentences, %d labels", sense.ErrLengthMismatch, len(c.Sentences), len(c.Labels))
	}
	one, two := c.Counts()
	if one == 0 || two == 0 {
		return artifact.Pair{}, artifact.WordStats{}, fmt.Errorf("%w: need both senses, got %d/%d", sense.ErrMalformedCorpus, one, two)
	}

	docs := textnorm.NormalizeAll(c.Sentences, word)
	vec := features.NewTFIDF(opts.TFIDF)
	if err := vec.Fit(docs); err != nil {
		return artifact.Pair{}, artifact.WordStats{}, fmt.Errorf("fit vectorizer: %w", err)
	}
	x := make([]features.Vector, len(docs))
	for i, d := range docs {
		v, err := vec.Transform(d)
		if err != nil {
			return artifact.Pair{}, artifact.WordStats{}, fmt.Errorf("transform sentence %d: %w", i, err)
		}
		x[i] = v
	}
	clf := classifier.NewLogistic(opts.Logistic)
	if err := clf.Fit(x, c.Labels); err != nil {
		return artifact.Pair{}, artifact.WordStats{}, fmt.Errorf("fit classifier: %w", err)
	}

	stats := artifact.WordStats{
		Sentences: c.Len(),
		Sense1:    one,
		Sense2:    two,
		Features:  vec.Dim(),
	}
	return artifact.Pair{Vectorizer: vec, Classifier: clf}, stats, nil
}

// Trainer fits artifact pairs and persists them through a Writer.
type Trainer struct {
	writer artifact.Writer
	opts   Options
	logger *slog.Logger
}

func NewTrainer(w artifact.Writer, opts Options, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Trainer{writer: w, opts: opts, logger: logger}
}

// Train fits word on c, optionally evaluates it and saves the pair.
func (t *Trainer) Train(ctx context.Context, word sense.Word, c *corpus.Corpus) (Result, error) {
	start := time.Now()
	word = word.Normalize()
	t.logger.Info("training", "word", word, "sentences", c.Len())

	pair, stats, err := Fit(c, word, t.opts)
	if err != nil {
		return Result{}, fmt.Errorf("train %s: %w", word, err)
	}
	if t.opts.Folds >= 2 {
		acc, err := CrossValidate(ctx, c, word, t.opts)
		if err != nil {
			return Result{}, fmt.Errorf("evaluate %s: %w", word, err)
		}
		stats.Accuracy = acc
	}
	if err := t.writer.Save(ctx, word, pair); err != nil {
		return Result{}, fmt.Errorf("save %s: %w", word, err)
	}

	res := Result{Word: word, Pair: pair, Stats: stats, Elapsed: time.Since(start)}
	t.logger.Info("trained",
		"word", word,
		"features", stats.Features,
		"sense1", stats.Sense1,
		"sense2", stats.Sense2,
		"cv_accuracy", stats.Accuracy,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// TrainAll trains every job, up to Workers at a time. Results are in job
// order.
func (t *Trainer) TrainAll(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := t.Train(gctx, job.Word, job.Corpus)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CrossValidate returns mean accuracy over opts.Folds stratified folds.
// Each fold fits its own vectorizer so held-out text never leaks into the
// vocabulary.
func CrossValidate(ctx context.Context, c *corpus.Corpus, word sense.Word, opts Options) (float64, error) {
	k := opts.Folds
	if k < 2 {
		return 0, errors.New("cross validation needs at least 2 folds")
	}
	folds := stratifiedFolds(c.Labels, k, opts.Seed)
	for i, f := range folds {
		if len(f) == 0 {
			return 0, fmt.Errorf("fold %d is empty: corpus too small for %d folds", i, k)
		}
	}

	var (
		mu    sync.Mutex
		score float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var trainIdx []int
			for j, f := range folds {
				if j != i {
					trainIdx = append(trainIdx, f...)
				}
			}
			sort.Ints(trainIdx)

			pair, _, err := Fit(c.Subset(trainIdx), word, opts)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			acc, err := Accuracy(pair, c.Subset(folds[i]), word)
			if err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			mu.Lock()
			score += acc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return score / float64(k), nil
}

// Accuracy scores pair against a labeled corpus using the model stage only.
func Accuracy(pair artifact.Pair, c *corpus.Corpus, word sense.Word) (float64, error) {
	if c.Len() == 0 {
		return 0, nil
	}
	correct := 0
	for i, s := range c.Sentences {
		v, err := pair.Vectorizer.Transform(textnorm.Normalize(s, word))
		if err != nil {
			return 0, err
		}
		l, err := pair.Classifier.Predict(v)
		if err != nil {
			return 0, err
		}
		if l == c.Labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(c.Len()), nil
}

// stratifiedFolds deals the indices of each sense round-robin into k folds.
func stratifiedFolds(labels []sense.Label, k int, seed uint64) [][]int {
	bySense := map[sense.Label][]int{}
	for i, l := range labels {
		bySense[l] = append(bySense[l], i)
	}
	if seed != 0 {
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		for _, l := range []sense.Label{sense.One, sense.Two} {
			idx := bySense[l]
			r.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		}
	}

	folds := make([][]int, k)
	n := 0
	for _, l := range []sense.Label{sense.One, sense.Two} {
		for _, i := range bySense[l] {
			folds[n%k] = append(folds[n%k], i)
			n++
		}
	}
	return folds
}

// WriteManifest records stats and hashes the artifact files of every
// result. Entries for words not in results are carried over from an existing
// manifest.json; the run id and timestamp are always fresh.
func WriteManifest(store *artifact.DirStore, results []Result) (artifact.Manifest, error) {
	m := artifact.NewManifest()
	prev, err := artifact.LoadManifest(store.Dir())
	switch {
	case err == nil:
		m.Files = prev.Files
		for w, st := range prev.Words {
			m.Words[w] = st
		}
	case !errors.Is(err, artifact.ErrManifestNotFound):
		return artifact.Manifest{}, err
	}
	for _, r := range results {
		m.Words[string(r.Word)] = r.Stats
		if err := m.ReplaceFiles(store.Dir(), store.Files(r.Word)...); err != nil {
			return artifact.Manifest{}, fmt.Errorf("hash %s artifacts: %w", r.Word, err)
		}
	}
	if err := artifact.SaveManifest(store.Dir(), m); err != nil {
		return artifact.Manifest{}, err
	}
	return m, nil
}

// CorpusPath is the conventional location of word's training file.
func CorpusPath(dataDir string, word sense.Word) string {
	return filepath.Join(dataDir, string(word)+".txt")
}
