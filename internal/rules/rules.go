package rules

import (
	"strings"

	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/textnorm"
)

// Rule is a deterministic lexical override for one target word. Decide
// returns sense.One, sense.Two or sense.None when the rule has no opinion.
type Rule interface {
	Word() sense.Word
	Decide(sentence string) sense.Label
}

// Match lists the cues found in a sentence for each sense.
type Match struct {
	Sense1 []string `json:"sense1,omitempty"`
	Sense2 []string `json:"sense2,omitempty"`
}

// Explainer is implemented by rules that can report which cues fired.
type Explainer interface {
	Matches(sentence string) Match
}

// CueRule resolves a sentence when cues of exactly one sense are present.
// Cues are matched as substrings of the lowercased raw sentence, so a cue
// may span several words ("time-and-a-half").
type CueRule struct {
	Target sense.Word
	Sense1 []string
	Sense2 []string
}

func (r CueRule) Word() sense.Word { return r.Target }

func (r CueRule) Decide(sentence string) sense.Label {
	s := textnorm.Lower(sentence)
	has1 := containsAny(s, r.Sense1)
	has2 := containsAny(s, r.Sense2)

	switch {
	case has1 && !has2:
		return sense.One
	case has2 && !has1:
		return sense.Two
	default:
		return sense.None
	}
}

func (r CueRule) Matches(sentence string) Match {
	s := textnorm.Lower(sentence)
	return Match{Sense1: matching(s, r.Sense1), Sense2: matching(s, r.Sense2)}
}

// OverrideRule is exhaustive: OnMatch when any cue is present, Default
// otherwise. The fallback classifier is unreachable for its word.
type OverrideRule struct {
	Target  sense.Word
	Cues    []string
	OnMatch sense.Label
	Default sense.Label
}

func (r OverrideRule) Word() sense.Word { return r.Target }

func (r OverrideRule) Decide(sentence string) sense.Label {
	if containsAny(textnorm.Lower(sentence), r.Cues) {
		return r.OnMatch
	}
	return r.Default
}

func (r OverrideRule) Matches(sentence string) Match {
	hits := matching(textnorm.Lower(sentence), r.Cues)
	if r.OnMatch == sense.One {
		return Match{Sense1: hits}
	}
	return Match{Sense2: hits}
}

// Func adapts a plain function to Rule.
type Func struct {
	Target sense.Word
	Fn     func(sentence string) sense.Label
}

func (f Func) Word() sense.Word { return f.Target }

func (f Func) Decide(sentence string) sense.Label {
	if f.Fn == nil {
		return sense.None
	}
	return f.Fn(sentence)
}

// Never is a rule that always defers to the model.
func Never(word sense.Word) Rule {
	return Func{Target: word, Fn: func(string) sense.Label { return sense.None }}
}

// Explain returns the cues r found in sentence, or an empty Match when r
// does not expose its vocabulary.
func Explain(r Rule, sentence string) Match {
	if e, ok := r.(Explainer); ok {
		return e.Matches(sentence)
	}
	return Match{}
}

// Overlap reports cues listed under both senses. Such a cue can never
// resolve a sentence on its own; it is an authoring mistake.
func Overlap(r CueRule) []string {
	seen := make(map[string]struct{}, len(r.Sense1))
	for _, c := range r.Sense1 {
		seen[strings.ToLower(c)] = struct{}{}
	}
	var out []string
	for _, c := range r.Sense2 {
		if _, ok := seen[strings.ToLower(c)]; ok {
			out = append(out, c)
		}
	}
	return out
}

func containsAny(s string, cues []string) bool {
	for _, c := range cues {
		if c != "" && strings.Contains(s, c) {
			return true
		}
	}
	return false
}

func matching(s string, cues []string) []string {
	var out []string
	for _, c := range cues {
		if c != "" && strings.Contains(s, c) {
			out = append(out, c)
		}
	}
	return out
}
