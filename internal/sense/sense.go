package sense

import (
	"errors"
	"fmt"
	"strings"
)

// Label identifies one of the two senses of a target word.
// Its meaning is defined per word by the training corpus.
type Label int

const (
	// None is only produced by rules and means "no decision".
	None Label = 0
	One  Label = 1
	Two  Label = 2
)

// Valid reports whether l is a concrete sense.
func (l Label) Valid() bool {
	return l == One || l == Two
}

func (l Label) String() string {
	switch l {
	case One:
		return "1"
	case Two:
		return "2"
	default:
		return "none"
	}
}

// ParseLabel parses "1" or "2".
func ParseLabel(s string) (Label, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return One, nil
	case "2":
		return Two, nil
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
}

// Word is a target word identifier, e.g. "director".
type Word string

const (
	Director Word = "director"
	Overtime Word = "overtime"
	Rubbish  Word = "rubbish"
)

// Normalize returns the canonical (trimmed, lowercase) identifier.
func (w Word) Normalize() Word {
	return Word(strings.ToLower(strings.TrimSpace(string(w))))
}

// Plural is the naive plural form used when stripping the target word.
func (w Word) Plural() string {
	return string(w) + "s"
}

var (
	ErrUnsupportedWord  = errors.New("unsupported word")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidLabel     = errors.New("invalid sense label")
	ErrLengthMismatch   = errors.New("prediction count does not match input")
	ErrNotFitted        = errors.New("model not fitted")
	ErrMalformedCorpus  = errors.New("malformed training corpus")
)
