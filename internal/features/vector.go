package features

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Vector is a sparse feature vector. Indices are strictly increasing and
// every index is below Dim.
type Vector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// Dot returns the inner product of v with the dense vector w.
func (v Vector) Dot(w []float64) float64 {
	var sum float64
	for k, idx := range v.Indices {
		if idx < len(w) {
			sum += v.Values[k] * w[idx]
		}
	}
	return sum
}

// Dense expands v into a freshly allocated slice of length Dim.
func (v Vector) Dense() []float64 {
	out := make([]float64, v.Dim)
	for k, idx := range v.Indices {
		out[idx] = v.Values[k]
	}
	return out
}

// Norm is the Euclidean length of v.
func (v Vector) Norm() float64 {
	if len(v.Values) == 0 {
		return 0
	}
	return floats.Norm(v.Values, 2)
}

// NNZ is the number of stored entries.
func (v Vector) NNZ() int { return len(v.Indices) }

func (v Vector) check() error {
	if len(v.Indices) != len(v.Values) {
		return fmt.Errorf("vector has %d indices but %d values", len(v.Indices), len(v.Values))
	}
	prev := -1
	for _, idx := range v.Indices {
		if idx <= prev || idx >= v.Dim {
			return fmt.Errorf("vector index %d out of order or range (dim %d)", idx, v.Dim)
		}
		prev = idx
	}
	return nil
}

// TextVectorizer turns normalized text into feature vectors. Fit learns
// the feature space from a training corpus; Transform must never change it.
type TextVectorizer interface {
	Fit(corpus []string) error
	Transform(text string) (Vector, error)
}
