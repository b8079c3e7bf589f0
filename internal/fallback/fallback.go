package fallback

import (
	"errors"
	"fmt"

	"github.com/straja-ai/wsd/internal/artifact"
	"github.com/straja-ai/wsd/internal/sense"
)

// Predict vectorizes an already normalized sentence with the pair's fitted
// vectorizer and classifies it. The vectorizer is never refitted here.
func Predict(pair artifact.Pair, normalized string) (sense.Label, error) {
	if pair.Vectorizer == nil || pair.Classifier == nil {
		return sense.None, errors.New("fallback: artifact pair is incomplete")
	}
	vec, err := pair.Vectorizer.Transform(normalized)
	if err != nil {
		return sense.None, fmt.Errorf("fallback: transform: %w", err)
	}
	label, err := pair.Classifier.Predict(vec)
	if err != nil {
		return sense.None, fmt.Errorf("fallback: predict: %w", err)
	}
	if !label.Valid() {
		return sense.None, fmt.Errorf("fallback: %w: classifier returned %d", sense.ErrInvalidLabel, int(label))
	}
	return label, nil
}
