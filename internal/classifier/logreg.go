package classifier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/straja-ai/wsd/internal/features"
	"github.com/straja-ai/wsd/internal/sense"
)

// LogisticConfig holds the regularization strength and solver budget.
type LogisticConfig struct {
	// C is the inverse L2 regularization strength.
	C       float64 `msgpack:"c" yaml:"c"`
	MaxIter int     `msgpack:"max_iter" yaml:"max_iter"`
}

func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{C: 1.0, MaxIter: 1000}
}

// Logistic is a binary L2-regularized logistic regression. A positive
// decision value predicts sense.Two. The intercept is not regularized.
type Logistic struct {
	Config    LogisticConfig `msgpack:"config"`
	Weights   []float64      `msgpack:"weights"`
	Intercept float64        `msgpack:"intercept"`
}

var _ Classifier = (*Logistic)(nil)

func NewLogistic(cfg LogisticConfig) *Logistic {
	if cfg.C <= 0 {
		cfg.C = 1.0
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 1000
	}
	return &Logistic{Config: cfg}
}

// Fitted reports whether weights are present.
func (m *Logistic) Fitted() bool {
	return m != nil && m.Weights != nil
}

// Fit minimizes 0.5*|w|^2 + C*sum(log(1+exp(-y*(w.x+b)))) with L-BFGS.
func (m *Logistic) Fit(x []features.Vector, y []sense.Label) error {
	if len(x) == 0 {
		return errors.New("logistic: no training samples")
	}
	if len(x) != len(y) {
		return fmt.Errorf("logistic: %d samples but %d labels", len(x), len(y))
	}

	dim := x[0].Dim
	signs := make([]float64, len(y))
	var ones, twos int
	for i, l := range y {
		if x[i].Dim != dim {
			return fmt.Errorf("logistic: sample %d has dim %d, want %d", i, x[i].Dim, dim)
		}
		switch l {
		case sense.One:
			signs[i] = -1
			ones++
		case sense.Two:
			signs[i] = 1
			twos++
		default:
			return fmt.Errorf("logistic: sample %d: %w: %d", i, sense.ErrInvalidLabel, int(l))
		}
	}
	if ones == 0 || twos == 0 {
		return errors.New("logistic: training data must contain both senses")
	}

	c := m.Config.C
	// params = weights followed by the intercept.
	n := dim + 1
	margins := make([]float64, len(x))

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			w, b := p[:dim], p[dim]
			loss := 0.5 * floats.Dot(w, w)
			for i, v := range x {
				loss += c * logOnePlusExp(-signs[i]*(v.Dot(w)+b))
			}
			return loss
		},
		Grad: func(grad, p []float64) {
			w, b := p[:dim], p[dim]
			copy(grad[:dim], w)
			grad[dim] = 0
			for i, v := range x {
				margins[i] = signs[i] * (v.Dot(w) + b)
				coef := -c * signs[i] * sigmoid(-margins[i])
				for k, idx := range v.Indices {
					grad[idx] += coef * v.Values[k]
				}
				grad[dim] += coef
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   m.Config.MaxIter,
		GradientThreshold: 1e-6,
	}
	result, err := optimize.Minimize(problem, make([]float64, n), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("logistic: optimize: %w", err)
	}
	// Line-search stalls near the optimum are reported as errors but the
	// best location is still usable.
	if !allFinite(result.X) {
		return fmt.Errorf("logistic: solver diverged: %v", err)
	}

	m.Weights = append([]float64(nil), result.X[:dim]...)
	m.Intercept = result.X[dim]
	return nil
}

// Decision returns w.x + b.
func (m *Logistic) Decision(x features.Vector) (float64, error) {
	if !m.Fitted() {
		return 0, fmt.Errorf("logistic: %w", sense.ErrNotFitted)
	}
	if x.Dim != len(m.Weights) {
		return 0, fmt.Errorf("logistic: vector dim %d does not match model dim %d", x.Dim, len(m.Weights))
	}
	return x.Dot(m.Weights) + m.Intercept, nil
}

// Probability returns P(sense.Two | x).
func (m *Logistic) Probability(x features.Vector) (float64, error) {
	d, err := m.Decision(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(d), nil
}

func (m *Logistic) Predict(x features.Vector) (sense.Label, error) {
	d, err := m.Decision(x)
	if err != nil {
		return sense.None, err
	}
	if d > 0 {
		return sense.Two, nil
	}
	return sense.One, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logOnePlusExp computes log(1+exp(z)) without overflow.
func logOnePlusExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
