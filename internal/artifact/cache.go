package artifact

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/straja-ai/wsd/internal/sense"
)

// CachedStore memoizes successful loads for the life of the process.
// Concurrent loads of the same word share one call to the inner store;
// failures are not cached.
type CachedStore struct {
	inner Store
	group singleflight.Group

	mu    sync.RWMutex
	pairs map[sense.Word]Pair
}

var _ Store = (*CachedStore)(nil)

func Cached(inner Store) *CachedStore {
	return &CachedStore{inner: inner, pairs: make(map[sense.Word]Pair)}
}

func (c *CachedStore) Load(ctx context.Context, word sense.Word) (Pair, error) {
	c.mu.RLock()
	pair, ok := c.pairs[word]
	c.mu.RUnlock()
	if ok {
		return pair, nil
	}

	v, err, _ := c.group.Do(string(word), func() (any, error) {
		c.mu.RLock()
		p, ok := c.pairs[word]
		c.mu.RUnlock()
		if ok {
			return p, nil
		}
		p, err := c.inner.Load(ctx, word)
		if err != nil {
			return Pair{}, err
		}
		c.mu.Lock()
		c.pairs[word] = p
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return Pair{}, err
	}
	return v.(Pair), nil
}

// Forget drops a cached pair so the next Load re-reads the inner store.
func (c *CachedStore) Forget(word sense.Word) {
	c.mu.Lock()
	delete(c.pairs, word)
	c.mu.Unlock()
	c.group.Forget(string(word))
}
