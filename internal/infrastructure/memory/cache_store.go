package memory

import (
	"context"
	"sync"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"
)

// CacheStore is a process-local cache backend. Contents are lost on restart.
type CacheStore struct {
	mu      sync.RWMutex
	records map[domain.CacheKey][]byte
}

var _ application.CacheBackend = (*CacheStore)(nil)

func NewCacheStore() *CacheStore {
	return &CacheStore{records: make(map[domain.CacheKey][]byte)}
}

func (s *CacheStore) Load(_ context.Context, key domain.CacheKey) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, application.ErrCacheMiss
	}
	return append([]byte(nil), rec...), nil
}

func (s *CacheStore) Save(_ context.Context, key domain.CacheKey, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), record...)
	return nil
}
