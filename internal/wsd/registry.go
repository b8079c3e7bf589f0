package wsd

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/straja-ai/wsd/internal/rules"
	"github.com/straja-ai/wsd/internal/sense"
)

// Entry binds a word to its lexical rule and the key its trained
// artifacts are stored under.
type Entry struct {
	Rule        rules.Rule
	ArtifactKey sense.Word
}

// Registry maps supported words to their entries. Adding a word is a
// registration, not a new branch in the predictor.
type Registry struct {
	mu      sync.RWMutex
	entries map[sense.Word]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[sense.Word]Entry)}
}

// DefaultRegistry registers every built-in rule under its own word.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range rules.Builtin() {
		if err := r.Register(rule.Word(), Entry{Rule: rule}); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds word. ArtifactKey defaults to the word itself.
func (r *Registry) Register(word sense.Word, e Entry) error {
	word = word.Normalize()
	if word == "" {
		return errors.New("register: empty word")
	}
	if e.Rule == nil {
		return fmt.Errorf("register %s: rule is nil", word)
	}
	if e.ArtifactKey == "" {
		e.ArtifactKey = word
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[word]; exists {
		return fmt.Errorf("register %s: already registered", word)
	}
	r.entries[word] = e
	return nil
}

// Lookup returns the entry for word or an error wrapping
// sense.ErrUnsupportedWord.
func (r *Registry) Lookup(word sense.Word) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[word.Normalize()]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", sense.ErrUnsupportedWord, word)
	}
	return e, nil
}

// Words returns the registered words in sorted order.
func (r *Registry) Words() []sense.Word {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]sense.Word, 0, len(r.entries))
	for w := range r.entries {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
