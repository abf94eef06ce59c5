package redisstore

import (
	"context"
	"time"

	"portfolio-service/internal/application"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idem:"

type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ application.IdempotencyStore = (*Store)(nil)

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	return s.Client.SetNX(ctx, idempotencyPrefix+key, "1", s.TTL).Result()
}

func (s *Store) Release(ctx context.Context, key string) error {
	return s.Client.Del(ctx, idempotencyPrefix+key).Err()
}
