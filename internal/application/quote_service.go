package application

import (
	"context"
	"fmt"
	"time"

	"portfolio-service/internal/domain"
	"portfolio-service/internal/retry"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QuoteService produces quotes and history for tickers: mock data when configured,
// otherwise a fresh cache entry, otherwise a retried upstream fetch. When the
// upstream stays down it degrades to the last cached value or the zero sentinel.
type QuoteService struct {
	upstream MarketData
	mock     MarketData
	cache    *QuoteCache
	policy   retry.Policy

	sentinelTTL    time.Duration
	tickerDeadline time.Duration

	group singleflight.Group
	log   *zap.Logger
}

type QuoteOption func(*QuoteService)

// WithMockData switches the service to generated data; cache and retry are bypassed.
func WithMockData(m MarketData) QuoteOption { return func(s *QuoteService) { s.mock = m } }

// WithSentinelTTL caches the failure sentinel for d so a down upstream is not hammered. Zero disables it.
func WithSentinelTTL(d time.Duration) QuoteOption {
	return func(s *QuoteService) { s.sentinelTTL = d }
}

// WithTickerDeadline bounds the whole acquisition of one ticker, retries included.
func WithTickerDeadline(d time.Duration) QuoteOption {
	return func(s *QuoteService) { s.tickerDeadline = d }
}

func WithQuoteLogger(l *zap.Logger) QuoteOption { return func(s *QuoteService) { s.log = l } }

func NewQuoteService(upstream MarketData, cache *QuoteCache, policy retry.Policy, opts ...QuoteOption) *QuoteService {
	s := &QuoteService{upstream: upstream, cache: cache, policy: policy}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// CurrentPrice always yields a quote. Callers distinguish failure via Quote.IsUnavailable.
func (s *QuoteService) CurrentPrice(ctx context.Context, ticker string) domain.Quote {
	ticker = domain.NormalizeTicker(ticker)
	if s.mock != nil {
		q, err := s.mock.FetchCurrent(ctx, ticker)
		if err != nil {
			return domain.Unavailable(ticker)
		}
		return q
	}

	key := domain.PriceKey(ticker)
	var cached domain.Quote
	if s.cache.Get(ctx, key, &cached) {
		s.log.Debug("quote.cache_hit", zap.String("key", key.String()))
		return cached
	}

	v, err := s.refresh(ctx, key, func(ctx context.Context) (any, error) {
		q, err := retry.Do(ctx, s.policy, func(ctx context.Context) (domain.Quote, error) {
			return s.upstream.FetchCurrent(ctx, ticker)
		})
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, q)
		return q, nil
	})
	if err == nil {
		return v.(domain.Quote)
	}

	// the caller may be past its deadline; fallback reads must still go through
	fctx := context.WithoutCancel(ctx)
	var stale domain.Quote
	if s.cache.GetStale(fctx, key, &stale) {
		s.log.Warn("quote.serve_stale", zap.String("key", key.String()), zap.Error(err))
		return stale
	}
	s.log.Warn("quote.unavailable", zap.String("key", key.String()), zap.Error(err))
	sentinel := domain.Unavailable(ticker)
	if s.sentinelTTL > 0 {
		if perr := s.cache.PutFor(fctx, key, sentinel, s.sentinelTTL); perr != nil {
			s.log.Warn("quote.cache_write_failed", zap.String("key", key.String()), zap.Error(perr))
		}
	}
	return sentinel
}

// History returns the daily series for ticker over period. When nothing can be
// produced it returns an empty series and an error wrapping ErrNoHistory.
func (s *QuoteService) History(ctx context.Context, ticker string, period domain.Period) (domain.HistorySeries, error) {
	ticker = domain.NormalizeTicker(ticker)
	period = domain.ParsePeriod(string(period))
	if s.mock != nil {
		return s.mock.FetchHistory(ctx, ticker, period)
	}

	key := domain.HistoryKey(ticker, period)
	var cached domain.HistorySeries
	if s.cache.Get(ctx, key, &cached) {
		s.log.Debug("quote.cache_hit", zap.String("key", key.String()))
		return cached, nil
	}

	v, err := s.refresh(ctx, key, func(ctx context.Context) (any, error) {
		h, err := retry.Do(ctx, s.policy, func(ctx context.Context) (domain.HistorySeries, error) {
			return s.upstream.FetchHistory(ctx, ticker, period)
		})
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, h)
		return h, nil
	})
	if err == nil {
		return v.(domain.HistorySeries), nil
	}

	var stale domain.HistorySeries
	if s.cache.GetStale(context.WithoutCancel(ctx), key, &stale) {
		s.log.Warn("quote.serve_stale", zap.String("key", key.String()), zap.Error(err))
		return stale, nil
	}
	s.log.Warn("quote.history_unavailable", zap.String("key", key.String()), zap.Error(err))
	return domain.HistorySeries{}, fmt.Errorf("%w: %s %s: %w", ErrNoHistory, ticker, period, err)
}

// refresh runs fn once per key no matter how many callers are waiting on it. The
// shared fetch is detached from any single caller and bounded by the ticker
// deadline; a caller whose own context ends first gets its context error.
func (s *QuoteService) refresh(ctx context.Context, key domain.CacheKey, fn func(context.Context) (any, error)) (any, error) {
	if s.tickerDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.tickerDeadline)
		defer cancel()
	}
	ch := s.group.DoChan(key.String(), func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if s.tickerDeadline > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, s.tickerDeadline)
			defer cancel()
		}
		return fn(fctx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			s.log.Debug("quote.refresh_shared", zap.String("key", key.String()))
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *QuoteService) store(ctx context.Context, key domain.CacheKey, payload any) {
	if err := s.cache.Put(ctx, key, payload); err != nil {
		s.log.Warn("quote.cache_write_failed", zap.String("key", key.String()), zap.Error(err))
	}
}
