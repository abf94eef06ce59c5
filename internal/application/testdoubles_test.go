package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"portfolio-service/internal/domain"
)

var (
	ErrRepo     = errors.New("repo error")
	errUpstream = errors.New("upstream unavailable")
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memBackend struct {
	mu      sync.Mutex
	records map[domain.CacheKey][]byte
	loadErr error
}

func newMemBackend() *memBackend { return &memBackend{records: map[domain.CacheKey][]byte{}} }

func (m *memBackend) Load(_ context.Context, key domain.CacheKey) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	rec, ok := m.records[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return rec, nil
}

func (m *memBackend) Save(_ context.Context, key domain.CacheKey, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = record
	return nil
}

func (m *memBackend) put(key domain.CacheKey, raw string) {
	m.mu.Lock()
	m.records[key] = []byte(raw)
	m.mu.Unlock()
}

// fakeMarketData serves scripted results in order; the last one repeats.
type fakeMarketData struct {
	mu       sync.Mutex
	quotes   []quoteResult
	history  []historyResult
	gate     chan struct{}
	curCalls atomic.Int32
	hisCalls atomic.Int32
}

type quoteResult struct {
	q   domain.Quote
	err error
}

type historyResult struct {
	h   domain.HistorySeries
	err error
}

func (f *fakeMarketData) FetchCurrent(ctx context.Context, ticker string) (domain.Quote, error) {
	n := int(f.curCalls.Add(1))
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.quotes) == 0 {
		return domain.Quote{}, errUpstream
	}
	r := f.quotes[min(n, len(f.quotes))-1]
	if r.err == nil {
		r.q.Ticker = ticker
	}
	return r.q, r.err
}

func (f *fakeMarketData) FetchHistory(_ context.Context, _ string, _ domain.Period) (domain.HistorySeries, error) {
	n := int(f.hisCalls.Add(1))
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) == 0 {
		return nil, errUpstream
	}
	r := f.history[min(n, len(f.history))-1]
	return r.h, r.err
}

type fakeStore struct {
	mu        sync.Mutex
	positions []domain.Position
	saves     int
	err       error
}

func (f *fakeStore) Load(context.Context) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Position(nil), f.positions...), nil
}

func (f *fakeStore) Save(_ context.Context, ps []domain.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves++
	f.positions = append([]domain.Position(nil), ps...)
	return nil
}

type fakePrices struct {
	quotes map[string]domain.Quote
	calls  atomic.Int32
}

func (f *fakePrices) CurrentPrice(_ context.Context, ticker string) domain.Quote {
	f.calls.Add(1)
	if q, ok := f.quotes[ticker]; ok {
		return q
	}
	return domain.Unavailable(ticker)
}

func (f *fakePrices) History(_ context.Context, ticker string, _ domain.Period) (domain.HistorySeries, error) {
	if _, ok := f.quotes[ticker]; !ok {
		return domain.HistorySeries{}, ErrNoHistory
	}
	return domain.HistorySeries{{Date: "2025-01-01", Price: 1}}, nil
}

type fakeIdem struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeIdem) TryReserve(_ context.Context, k string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, k string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, k)
	return nil
}

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return "pos-" + string(rune('0'+g.n))
}

type countingUoW struct{ calls int }

func (u *countingUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	u.calls++
	return fn(ctx)
}
