package classifier

import (
	"github.com/straja-ai/wsd/internal/features"
	"github.com/straja-ai/wsd/internal/sense"
)

// Classifier maps feature vectors to one of the two senses.
type Classifier interface {
	Fit(x []features.Vector, y []sense.Label) error
	Predict(x features.Vector) (sense.Label, error)
}
