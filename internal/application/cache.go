package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolio-service/internal/domain"

	"go.uber.org/zap"
)

const DefaultFreshness = 5 * time.Minute

// MaxClockSkew is how far in the future a record's fetchedAt may lie before the
// record is rejected as corrupt.
const MaxClockSkew = time.Minute

// QuoteCache applies the freshness window on top of a CacheBackend.
// Unreadable or corrupt records are reported as misses.
type QuoteCache struct {
	backend CacheBackend
	window  time.Duration
	clock   Clock
	log     *zap.Logger
}

type CacheOption func(*QuoteCache)

func WithCacheClock(c Clock) CacheOption        { return func(q *QuoteCache) { q.clock = c } }
func WithCacheLogger(l *zap.Logger) CacheOption { return func(q *QuoteCache) { q.log = l } }

func NewQuoteCache(backend CacheBackend, window time.Duration, opts ...CacheOption) *QuoteCache {
	c := &QuoteCache{backend: backend, window: window}
	for _, opt := range opts {
		opt(c)
	}
	if c.window <= 0 {
		c.window = DefaultFreshness
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

func (c *QuoteCache) Window() time.Duration { return c.window }

// Get decodes the entry for key into out only if it is younger than the freshness window.
func (c *QuoteCache) Get(ctx context.Context, key domain.CacheKey, out any) bool {
	fetchedAt, ok := c.load(ctx, key, out)
	if !ok {
		return false
	}
	return c.clock.Now().Sub(fetchedAt) < c.window
}

// GetStale decodes the entry for key into out regardless of age.
func (c *QuoteCache) GetStale(ctx context.Context, key domain.CacheKey, out any) bool {
	_, ok := c.load(ctx, key, out)
	return ok
}

// Put overwrites the entry for key, stamped with the current time.
func (c *QuoteCache) Put(ctx context.Context, key domain.CacheKey, payload any) error {
	return c.save(ctx, key, payload, c.clock.Now())
}

// PutFor stores payload so that it stays fresh for lifetime rather than the full window.
func (c *QuoteCache) PutFor(ctx context.Context, key domain.CacheKey, payload any, lifetime time.Duration) error {
	at := c.clock.Now()
	if lifetime < c.window {
		at = at.Add(lifetime - c.window)
	}
	return c.save(ctx, key, payload, at)
}

func (c *QuoteCache) save(ctx context.Context, key domain.CacheKey, payload any, at time.Time) error {
	rec, err := domain.EncodeCacheRecord(at, payload)
	if err != nil {
		return err
	}
	if err := c.backend.Save(ctx, key, rec); err != nil {
		return fmt.Errorf("cache save %s: %w", key, err)
	}
	return nil
}

func (c *QuoteCache) load(ctx context.Context, key domain.CacheKey, out any) (time.Time, bool) {
	raw, err := c.backend.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("cache.load_failed", zap.String("key", key.String()), zap.Error(err))
		}
		return time.Time{}, false
	}
	fetchedAt, payload, err := domain.DecodeCacheRecord(raw)
	if err == nil && fetchedAt.After(c.clock.Now().Add(MaxClockSkew)) {
		err = fmt.Errorf("%w: fetchedAt %s is in the future", domain.ErrCorruptEntry, fetchedAt.UTC().Format(time.RFC3339))
	}
	if err == nil {
		if uerr := json.Unmarshal(payload, out); uerr != nil {
			err = fmt.Errorf("%w: payload: %v", domain.ErrCorruptEntry, uerr)
		}
	}
	if err != nil {
		c.log.Warn("cache.corrupt_entry", zap.String("key", key.String()), zap.Error(err))
		return time.Time{}, false
	}
	return fetchedAt, true
}
