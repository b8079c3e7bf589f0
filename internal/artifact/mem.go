package artifact

import (
	"context"
	"fmt"
	"sync"

	"github.com/straja-ai/wsd/internal/sense"
)

// MemStore holds artifact pairs in memory.
type MemStore struct {
	mu    sync.RWMutex
	pairs map[sense.Word]Pair
}

var (
	_ Store  = (*MemStore)(nil)
	_ Writer = (*MemStore)(nil)
)

func NewMemStore() *MemStore {
	return &MemStore{pairs: make(map[sense.Word]Pair)}
}

func (s *MemStore) Load(ctx context.Context, word sense.Word) (Pair, error) {
	if err := ctx.Err(); err != nil {
		return Pair{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair, ok := s.pairs[word]
	if !ok {
		return Pair{}, fmt.Errorf("%s: %w", word, sense.ErrArtifactNotFound)
	}
	return pair, nil
}

func (s *MemStore) Save(ctx context.Context, word sense.Word, pair Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pair.Vectorizer == nil || pair.Classifier == nil {
		return fmt.Errorf("save %s: artifact pair is incomplete", word)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[word] = pair
	return nil
}
