package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/wsd/internal/sense"
)

func TestTFIDFFitVocabularyAndIDF(t *testing.T) {
	v := NewTFIDF(DefaultTFIDFConfig())
	require.NoError(t, v.Fit([]string{"apple banana", "apple cherry", "date"}))

	for _, term := range []string{"apple", "banana", "cherry", "date", "apple banana", "apple cherry"} {
		_, ok := v.Vocabulary[term]
		assert.True(t, ok, "missing term %q", term)
	}
	assert.Equal(t, 6, v.Dim())

	// Indices follow sorted term order.
	assert.Equal(t, 0, v.Vocabulary["apple"])
	assert.Equal(t, 1, v.Vocabulary["apple banana"])

	assert.InDelta(t, math.Log(4.0/3.0)+1, v.IDF[v.Vocabulary["apple"]], 1e-12)
	assert.InDelta(t, math.Log(2)+1, v.IDF[v.Vocabulary["banana"]], 1e-12)
}

func TestTFIDFTransformIsL2Normalized(t *testing.T) {
	v := NewTFIDF(DefaultTFIDFConfig())
	require.NoError(t, v.Fit([]string{"apple banana", "apple cherry", "date"}))

	vec, err := v.Transform("apple banana")
	require.NoError(t, err)
	assert.Equal(t, 3, vec.NNZ())
	assert.InDelta(t, 1.0, vec.Norm(), 1e-12)

	dense := vec.Dense()
	assert.Greater(t, dense[v.Vocabulary["banana"]], dense[v.Vocabulary["apple"]])
}

func TestTFIDFMaxDFPrunesCommonTerms(t *testing.T) {
	v := NewTFIDF(DefaultTFIDFConfig())
	require.NoError(t, v.Fit([]string{"common a1", "common b1", "common c1"}))

	_, ok := v.Vocabulary["common"]
	assert.False(t, ok)
	_, ok = v.Vocabulary["common a1"]
	assert.True(t, ok)
}

func TestTFIDFUnknownTextIsZeroVector(t *testing.T) {
	v := NewTFIDF(DefaultTFIDFConfig())
	require.NoError(t, v.Fit([]string{"apple banana", "cherry"}))

	vec, err := v.Transform("zebra")
	require.NoError(t, err)
	assert.Equal(t, 0, vec.NNZ())
	assert.Equal(t, v.Dim(), vec.Dim)

	vec, err = v.Transform("")
	require.NoError(t, err)
	assert.Equal(t, 0, vec.NNZ())
}

func TestTFIDFTokenization(t *testing.T) {
	v := NewTFIDF(TFIDFConfig{NgramMin: 1, NgramMax: 1})
	// Single characters are not tokens; punctuation splits tokens.
	assert.Equal(t, []string{"won", "prize", "for", "the", "film"}, v.Analyze("I won a prize, for the film!"))
	assert.Equal(t, []string{"time", "and", "half"}, v.Analyze("time-and-a-half"))
}

func TestTFIDFRequiresFit(t *testing.T) {
	v := NewTFIDF(DefaultTFIDFConfig())
	_, err := v.Transform("anything")
	require.True(t, errors.Is(err, sense.ErrNotFitted))

	require.Error(t, v.Fit(nil))
	// A single document exceeds max_df for every term.
	require.Error(t, v.Fit([]string{"only one"}))
}

func TestVectorDot(t *testing.T) {
	vec := Vector{Dim: 4, Indices: []int{1, 3}, Values: []float64{2, 0.5}}
	assert.InDelta(t, 2*10+0.5*4, vec.Dot([]float64{1, 10, 100, 4}), 1e-12)
	require.NoError(t, vec.check())

	bad := Vector{Dim: 2, Indices: []int{1, 1}, Values: []float64{1, 1}}
	require.Error(t, bad.check())
}
