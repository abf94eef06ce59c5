package redisstore

import (
	"context"
	"errors"
	"fmt"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "quote:"

// CacheStore shares cache records between API and worker processes through Redis.
// Keys carry no TTL: expired entries are still needed as stale fallbacks.
type CacheStore struct {
	Client *redis.Client
}

var _ application.CacheBackend = (*CacheStore)(nil)

func NewCacheStore(client *redis.Client) *CacheStore { return &CacheStore{Client: client} }

func cacheKey(k domain.CacheKey) string {
	return fmt.Sprintf("%s%s:%s", cachePrefix, k.Ticker, k.Kind)
}

func (s *CacheStore) Load(ctx context.Context, key domain.CacheKey) ([]byte, error) {
	b, err := s.Client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, application.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return b, nil
}

func (s *CacheStore) Save(ctx context.Context, key domain.CacheKey, record []byte) error {
	if err := s.Client.Set(ctx, cacheKey(key), record, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
