package telemetry

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/straja-ai/wsd/internal/sense"
)

// Sentence text never leaves the process as telemetry.
var denyKeys = []string{
	"sentence",
	"text",
	"normalized",
	"cue",
	"body",
}

const maxAttrLen = 128

// SafeAttributes converts batch annotations into span attributes. Keys that
// may carry sentence text are dropped, as are long strings and unknown types.
// Errors are reduced to their ErrorClass.
func SafeAttributes(values map[string]any) []attribute.KeyValue {
	if len(values) == 0 {
		return nil
	}
	var attrs []attribute.KeyValue
	for k, v := range values {
		if denied(k) {
			continue
		}
		switch val := v.(type) {
		case string:
			if len(val) > maxAttrLen {
				continue
			}
			attrs = append(attrs, attribute.String(k, val))
		case sense.Word:
			attrs = append(attrs, attribute.String(k, string(val)))
		case sense.Label:
			attrs = append(attrs, attribute.Int(k, int(val)))
		case error:
			attrs = append(attrs, attribute.String(k, ErrorClass(val)))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		}
	}
	return attrs
}

func denied(key string) bool {
	lk := strings.ToLower(key)
	for _, bad := range denyKeys {
		if strings.Contains(lk, bad) {
			return true
		}
	}
	return false
}

// ErrorClass maps a prediction error onto a low-cardinality label.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sense.ErrUnsupportedWord):
		return "unsupported_word"
	case errors.Is(err, sense.ErrArtifactNotFound):
		return "artifact_not_found"
	case errors.Is(err, sense.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, sense.ErrInvalidLabel):
		return "invalid_label"
	case errors.Is(err, sense.ErrNotFitted):
		return "not_fitted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
