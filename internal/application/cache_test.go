package application

import (
	"context"
	"testing"
	"time"

	"portfolio-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func newTestCache(window time.Duration) (*QuoteCache, *memBackend, *fakeClock) {
	b := newMemBackend()
	clk := &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	return NewQuoteCache(b, window, WithCacheClock(clk)), b, clk
}

func TestQuoteCache_FreshnessBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, clk := newTestCache(5 * time.Minute)
	key := domain.PriceKey("AAPL")
	require.NoError(t, c.Put(ctx, key, domain.Quote{Ticker: "AAPL", Price: 180, ChangePercent: 1.5}))

	var q domain.Quote
	require.True(t, c.Get(ctx, key, &q))
	require.Equal(t, 180.0, q.Price)

	clk.Advance(5*time.Minute - time.Second)
	require.True(t, c.Get(ctx, key, &q))

	clk.Advance(time.Second)
	require.False(t, c.Get(ctx, key, &q), "entry aged exactly the window is stale")

	var stale domain.Quote
	require.True(t, c.GetStale(ctx, key, &stale))
	require.Equal(t, 180.0, stale.Price)
}

func TestQuoteCache_Miss(t *testing.T) {
	t.Parallel()
	c, _, _ := newTestCache(time.Minute)
	var q domain.Quote
	require.False(t, c.Get(context.Background(), domain.PriceKey("NOPE"), &q))
	require.False(t, c.GetStale(context.Background(), domain.PriceKey("NOPE"), &q))
}

func TestQuoteCache_PutOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, clk := newTestCache(time.Minute)
	key := domain.PriceKey("MSFT")
	require.NoError(t, c.Put(ctx, key, domain.Quote{Ticker: "MSFT", Price: 1}))
	clk.Advance(2 * time.Minute)
	require.NoError(t, c.Put(ctx, key, domain.Quote{Ticker: "MSFT", Price: 2}))

	var q domain.Quote
	require.True(t, c.Get(ctx, key, &q))
	require.Equal(t, 2.0, q.Price)
}

func TestQuoteCache_PutForShortLifetime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, clk := newTestCache(5 * time.Minute)
	key := domain.PriceKey("AAPL")
	require.NoError(t, c.PutFor(ctx, key, domain.Unavailable("AAPL"), 30*time.Second))

	var q domain.Quote
	require.True(t, c.Get(ctx, key, &q))
	require.True(t, q.IsUnavailable())

	clk.Advance(30 * time.Second)
	require.False(t, c.Get(ctx, key, &q))
}

func TestQuoteCache_CorruptIsMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, b, _ := newTestCache(time.Minute)

	b.put(domain.PriceKey("BAD1"), `{"fetchedAt":`)
	b.put(domain.PriceKey("BAD2"), `{"payload":{"price":1}}`)
	b.put(domain.HistoryKey("BAD3", domain.Period1Y), `{"fetchedAt": 1748772000, "payload": {"not":"a list"}}`)

	var q domain.Quote
	require.False(t, c.Get(ctx, domain.PriceKey("BAD1"), &q))
	require.False(t, c.GetStale(ctx, domain.PriceKey("BAD2"), &q))
	var h domain.HistorySeries
	require.False(t, c.GetStale(ctx, domain.HistoryKey("BAD3", domain.Period1Y), &h))
}

func TestQuoteCache_FutureTimestampIsMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, b, clk := newTestCache(5 * time.Minute)
	key := domain.PriceKey("AAPL")
	b.put(key, `{"fetchedAt": 99999999999, "payload": {"ticker":"AAPL","price":1,"change_percent":0}}`)

	var q domain.Quote
	require.False(t, c.Get(ctx, key, &q))
	require.False(t, c.GetStale(ctx, key, &q))

	skewed := clk.Now().Add(30 * time.Second)
	rec, err := domain.EncodeCacheRecord(skewed, domain.Quote{Ticker: "AAPL", Price: 2})
	require.NoError(t, err)
	b.put(key, string(rec))
	require.True(t, c.Get(ctx, key, &q), "small skew between hosts is tolerated")
	require.Equal(t, 2.0, q.Price)
}

func TestQuoteCache_BackendErrorIsMiss(t *testing.T) {
	t.Parallel()
	c, b, _ := newTestCache(time.Minute)
	b.loadErr = ErrRepo
	var q domain.Quote
	require.False(t, c.Get(context.Background(), domain.PriceKey("AAPL"), &q))
}

func TestQuoteCache_KeysIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, _ := newTestCache(time.Minute)
	series := domain.HistorySeries{{Date: "2025-05-30", Price: 1}, {Date: "2025-05-31", Price: 2}}
	require.NoError(t, c.Put(ctx, domain.HistoryKey("AAPL", domain.Period1M), series))

	var h domain.HistorySeries
	require.True(t, c.Get(ctx, domain.HistoryKey("AAPL", domain.Period1M), &h))
	require.Equal(t, series, h)
	require.False(t, c.Get(ctx, domain.HistoryKey("AAPL", domain.Period1Y), &h))
	var q domain.Quote
	require.False(t, c.Get(ctx, domain.PriceKey("AAPL"), &q))
}
