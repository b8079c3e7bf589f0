package wsd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/wsd/internal/artifact"
	"github.com/straja-ai/wsd/internal/features"
	"github.com/straja-ai/wsd/internal/rules"
	"github.com/straja-ai/wsd/internal/sense"
)

// failingStore fails the test if anything tries to load from it.
type failingStore struct{ t *testing.T }

func (s failingStore) Load(context.Context, sense.Word) (artifact.Pair, error) {
	s.t.Errorf("artifact store must not be touched")
	return artifact.Pair{}, errors.New("unexpected load")
}

type countingStore struct {
	loads atomic.Int32
	pair  artifact.Pair
	err   error
}

func (s *countingStore) Load(context.Context, sense.Word) (artifact.Pair, error) {
	s.loads.Add(1)
	return s.pair, s.err
}

type lengthVectorizer struct{}

func (lengthVectorizer) Fit([]string) error { return nil }

func (lengthVectorizer) Transform(text string) (features.Vector, error) {
	return features.Vector{Dim: 1, Indices: []int{0}, Values: []float64{float64(len(text))}}, nil
}

// evenOdd predicts 1 for even-length normalized text, 2 otherwise.
type evenOdd struct{}

func (evenOdd) Fit([]features.Vector, []sense.Label) error { return nil }

func (evenOdd) Predict(x features.Vector) (sense.Label, error) {
	if int(x.Values[0])%2 == 0 {
		return sense.One, nil
	}
	return sense.Two, nil
}

type constClassifier struct{ label sense.Label }

func (constClassifier) Fit([]features.Vector, []sense.Label) error { return nil }

func (c constClassifier) Predict(features.Vector) (sense.Label, error) { return c.label, nil }

func modelStore(label sense.Label) *countingStore {
	return &countingStore{pair: artifact.Pair{Vectorizer: lengthVectorizer{}, Classifier: constClassifier{label: label}}}
}

func TestRuleResolvesWithoutTouchingStore(t *testing.T) {
	p := New(DefaultRegistry(), failingStore{t: t})
	ctx := context.Background()

	got, err := p.Overtime(ctx, []string{"The manager approved unpaid overtime for the staff this week."})
	require.NoError(t, err)
	assert.Equal(t, []sense.Label{sense.One}, got)

	got, err = p.Overtime(ctx, []string{"The team needed a goal in overtime to win the match."})
	require.NoError(t, err)
	assert.Equal(t, []sense.Label{sense.Two}, got)

	got, err = p.Director(ctx, []string{"She won an award for directing the film."})
	require.NoError(t, err)
	assert.Equal(t, []sense.Label{sense.Two}, got)

	got, err = p.Director(ctx, []string{"The director approved the budget."})
	require.NoError(t, err)
	assert.Equal(t, []sense.Label{sense.One}, got)

	got, err = p.Rubbish(ctx, []string{"Put the rubbish in the bin.", "That argument is rubbish."})
	require.NoError(t, err)
	assert.Equal(t, []sense.Label{sense.One, sense.Two}, got)
}

func TestEmptyBatch(t *testing.T) {
	p := New(DefaultRegistry(), failingStore{t: t})
	for _, word := range []sense.Word{sense.Director, sense.Overtime, sense.Rubbish} {
		got, err := p.Predict(context.Background(), word, nil)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestUnsupportedWord(t *testing.T) {
	p := New(DefaultRegistry(), failingStore{t: t})
	_, err := p.Predict(context.Background(), "bank", []string{"the river bank"})
	assert.ErrorIs(t, err, sense.ErrUnsupportedWord)

	_, err = p.Predict(context.Background(), "bank", nil)
	assert.ErrorIs(t, err, sense.ErrUnsupportedWord)
}

func TestWordIsCaseInsensitive(t *testing.T) {
	p := New(DefaultRegistry(), failingStore{t: t})
	got, err := p.Predict(context.Background(), "Director", []string{"a new film"})
	require.NoError(t, err)
	assert.Equal(t, []sense.Label{sense.Two}, got)
}

func TestDeferredSentenceUsesModel(t *testing.T) {
	store := modelStore(sense.Two)
	p := New(DefaultRegistry(), store)

	got, err := p.Overtime(context.Background(), []string{
		"He spent the evening there.",
		"The team worked overtime.",
		"Unpaid staff again.",
	})
	require.NoError(t, err)
	assert.Equal(t, []sense.Label{sense.Two, sense.Two, sense.One}, got)
	assert.EqualValues(t, 1, store.loads.Load())
}

func TestArtifactsLoadedOncePerBatch(t *testing.T) {
	store := modelStore(sense.One)
	p := New(DefaultRegistry(), store, WithWorkers(8))

	batch := make([]string, 64)
	for i := range batch {
		batch[i] = "He spent the evening there."
	}
	got, err := p.Overtime(context.Background(), batch)
	require.NoError(t, err)
	assert.Len(t, got, len(batch))
	assert.EqualValues(t, 1, store.loads.Load())
}

func TestMissingArtifactFailsWholeBatch(t *testing.T) {
	store := &countingStore{err: fmt.Errorf("model file overtime_model.msgpack: %w", sense.ErrArtifactNotFound)}
	p := New(DefaultRegistry(), store)

	got, err := p.Overtime(context.Background(), []string{
		"Unpaid staff again.",
		"He spent the evening there.",
	})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, sense.ErrArtifactNotFound)
	assert.Contains(t, err.Error(), "overtime")
}

func TestAllRuleBatchIgnoresMissingArtifacts(t *testing.T) {
	store := &countingStore{err: fmt.Errorf("model file rubbish_model.msgpack: %w", sense.ErrArtifactNotFound)}
	p := New(DefaultRegistry(), store)

	got, err := p.Rubbish(context.Background(), []string{"Take out the trash bags.", "What nonsense."})
	require.NoError(t, err)
	assert.Equal(t, []sense.Label{sense.One, sense.Two}, got)
	assert.EqualValues(t, 0, store.loads.Load())
}

func TestOrderIndependence(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("probe", Entry{Rule: rules.Func{
		Target: "probe",
		Fn: func(s string) sense.Label {
			if strings.HasPrefix(s, "r") {
				return sense.Two
			}
			return sense.None
		},
	}}))
	store := &countingStore{pair: artifact.Pair{Vectorizer: lengthVectorizer{}, Classifier: evenOdd{}}}

	batch := []string{"ab", "abc", "rule", "abcd", "probe probe x", "r", "xyz", "probes"}
	want := make(map[string]sense.Label, len(batch))
	for _, workers := range []int{1, 4} {
		p := New(reg, store, WithWorkers(workers))
		got, err := p.Predict(context.Background(), "probe", batch)
		require.NoError(t, err)
		require.Len(t, got, len(batch))
		for i, s := range batch {
			want[s] = got[i]
		}

		reversed := make([]string, len(batch))
		for i, s := range batch {
			reversed[len(batch)-1-i] = s
		}
		again, err := p.Predict(context.Background(), "probe", reversed)
		require.NoError(t, err)
		for i, s := range reversed {
			assert.Equal(t, want[s], again[i], "workers=%d sentence=%q", workers, s)
		}

		for _, s := range batch {
			single, err := p.Predict(context.Background(), "probe", []string{s})
			require.NoError(t, err)
			assert.Equal(t, want[s], single[0], s)
		}
	}

	// The target word is dropped before the model sees the sentence.
	assert.Equal(t, sense.Two, want["probe probe x"])
	assert.Equal(t, sense.One, want["probes"])
}

func TestDeterministic(t *testing.T) {
	p := New(DefaultRegistry(), modelStore(sense.Two), WithWorkers(3))
	batch := []string{"He spent the evening there.", "The match went to overtime.", "Overtime pay.", "nothing"}

	first, err := p.Overtime(context.Background(), batch)
	require.NoError(t, err)
	for range 5 {
		again, err := p.Overtime(context.Background(), batch)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	for _, l := range first {
		assert.True(t, l.Valid())
	}
}

func TestModelOutOfRange(t *testing.T) {
	p := New(DefaultRegistry(), modelStore(sense.None))
	_, err := p.Overtime(context.Background(), []string{"He spent the evening there."})
	assert.ErrorIs(t, err, sense.ErrInvalidLabel)
}

func TestExplain(t *testing.T) {
	p := New(DefaultRegistry(), modelStore(sense.One))
	got, err := p.Explain(context.Background(), sense.Overtime, []string{
		"The manager approved unpaid overtime.",
		"The team worked overtime.",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, SourceRule, got[0].Source)
	assert.Equal(t, sense.One, got[0].Label)
	assert.Contains(t, got[0].Cues.Sense1, "manager")
	assert.Contains(t, got[0].Cues.Sense1, "unpaid")
	assert.Empty(t, got[0].Normalized)

	assert.Equal(t, SourceModel, got[1].Source)
	assert.Equal(t, "the team worked overtime.", got[1].Normalized)
	assert.NotEmpty(t, got[1].Cues.Sense1)
	assert.NotEmpty(t, got[1].Cues.Sense2)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(DefaultRegistry(), failingStore{t: t})
	_, err := p.Overtime(ctx, []string{"Overtime pay."})
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingRecorder struct {
	batches  int
	finished []error
	sources  map[string]int
	notes    map[string]any
}

func (r *recordingRecorder) StartBatch(ctx context.Context, _ sense.Word, _ int) (context.Context, func(error)) {
	r.batches++
	return ctx, func(err error) { r.finished = append(r.finished, err) }
}

func (r *recordingRecorder) RecordDecision(_ context.Context, _ sense.Word, source string) {
	r.sources[source]++
}

func (r *recordingRecorder) Annotate(_ context.Context, values map[string]any) {
	if r.notes == nil {
		r.notes = map[string]any{}
	}
	for k, v := range values {
		r.notes[k] = v
	}
}

func TestRecorder(t *testing.T) {
	rec := &recordingRecorder{sources: map[string]int{}}
	p := New(DefaultRegistry(), modelStore(sense.Two), WithRecorder(rec))

	_, err := p.Overtime(context.Background(), []string{"Overtime pay.", "He spent the evening there."})
	require.NoError(t, err)
	_, err = p.Overtime(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.batches)
	assert.Equal(t, []error{nil}, rec.finished)
	assert.Equal(t, map[string]int{"rule": 1, "model": 1}, rec.sources)
	assert.Equal(t, sense.Overtime, rec.notes["wsd.artifact_key"])
	assert.Equal(t, true, rec.notes["wsd.artifact_loaded"])
	assert.Equal(t, 1, rec.notes["wsd.rule_decisions"])
	assert.Equal(t, 1, rec.notes["wsd.model_decisions"])
}

func TestRecorderSeesArtifactFailure(t *testing.T) {
	rec := &recordingRecorder{sources: map[string]int{}}
	store := &countingStore{err: fmt.Errorf("model file: %w", sense.ErrArtifactNotFound)}
	p := New(DefaultRegistry(), store, WithRecorder(rec))

	_, err := p.Overtime(context.Background(), []string{"He spent the evening there."})
	require.ErrorIs(t, err, sense.ErrArtifactNotFound)
	require.Len(t, rec.finished, 1)
	assert.ErrorIs(t, rec.finished[0], sense.ErrArtifactNotFound)
	loadErr, ok := rec.notes["wsd.artifact_error"].(error)
	require.True(t, ok)
	assert.ErrorIs(t, loadErr, sense.ErrArtifactNotFound)
}

func TestTallyRejectsMissingLabels(t *testing.T) {
	full := []Decision{{Label: sense.One, Source: SourceRule}, {Label: sense.Two, Source: SourceModel}}
	counts, err := tally(full, 2)
	require.NoError(t, err)
	assert.Equal(t, map[Source]int{SourceRule: 1, SourceModel: 1}, counts)

	_, err = tally(full, 3)
	assert.ErrorIs(t, err, sense.ErrLengthMismatch)

	gap := []Decision{{Label: sense.One, Source: SourceRule}, {}}
	_, err = tally(gap, 2)
	assert.ErrorIs(t, err, sense.ErrLengthMismatch)
}
