package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/wsd"
)

const EventVersion = "1"

// Event summarizes one disambiguation request. Sentence text is never
// included.
type Event struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Word      string    `json:"word"`
	Sentences int       `json:"sentences"`
	Sense1    int       `json:"sense1"`
	Sense2    int       `json:"sense2"`
	ByRule    int       `json:"by_rule"`
	ByModel   int       `json:"by_model"`
	Status    int       `json:"status"`
	Error     string    `json:"error,omitempty"`
	LatencyMs float64   `json:"latency_ms"`
}

// NewEvent stamps a fresh request id and timestamp.
func NewEvent(word sense.Word, sentences int) *Event {
	return &Event{
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		RequestID: uuid.NewString(),
		Word:      string(word),
		Sentences: sentences,
	}
}

// Tally counts labels and decision sources.
func (e *Event) Tally(decisions []wsd.Decision) {
	for _, d := range decisions {
		switch d.Label {
		case sense.One:
			e.Sense1++
		case sense.Two:
			e.Sense2++
		}
		switch d.Source {
		case wsd.SourceRule:
			e.ByRule++
		case wsd.SourceModel:
			e.ByModel++
		}
	}
}
