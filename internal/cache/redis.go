package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by a shared Redis instance, letting several
// processes reuse each other's resolved permission maps. All Redis failures
// are swallowed: the resolver recomputes on a miss, so an unavailable cache
// only costs latency.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps an existing Redis client. ttl <= 0 stores entries
// without expiry; version stamping already guards against staleness, the TTL
// only bounds memory in the Redis instance.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Fetch(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil and backend failures both degrade to a miss;
		// the resolver recomputes.
		return nil, false
	}
	return value, true
}

func (s *RedisStore) Store(ctx context.Context, key string, value []byte) {
	_ = s.client.Set(ctx, key, value, s.ttl).Err()
}

var _ Store = (*RedisStore)(nil)
