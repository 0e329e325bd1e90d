package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize bounds the in-process cache to a generous number of
// (user, context) entries before eviction.
const DefaultLRUSize = 16384

// LRUStore is an in-process Store backed by a fixed-size LRU cache.
// Suitable for single-process deployments; entries survive across requests
// but not across restarts.
type LRUStore struct {
	cache *lru.Cache[string, []byte]
}

// NewLRUStore creates an LRUStore holding at most size entries.
// size <= 0 selects DefaultLRUSize.
func NewLRUStore(size int) (*LRUStore, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &LRUStore{cache: c}, nil
}

func (s *LRUStore) Fetch(ctx context.Context, key string) ([]byte, bool) {
	return s.cache.Get(key)
}

func (s *LRUStore) Store(ctx context.Context, key string, value []byte) {
	s.cache.Add(key, value)
}

var _ Store = (*LRUStore)(nil)
