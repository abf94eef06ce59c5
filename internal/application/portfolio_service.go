package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"portfolio-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FixedOrder pins well-known tickers to the top of the portfolio listing.
var FixedOrder = map[string]int{
	"SPLG":    1,
	"QQQM":    2,
	"BTC-USD": 3,
	"XRP-USD": 4,
}

const defaultOrder = 999

const DefaultFetchWorkers = 4

type PortfolioService struct {
	store   PortfolioStore
	prices  PriceSource
	idem    IdempotencyStore
	uow     UnitOfWork
	idgen   IDGen
	workers int
	log     *zap.Logger

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

type Option func(*PortfolioService)

func WithIDGen(g IDGen) Option { return func(s *PortfolioService) { s.idgen = g } }

func WithUnitOfWork(u UnitOfWork) Option { return func(s *PortfolioService) { s.uow = u } }

func WithIdempotency(i IdempotencyStore) Option { return func(s *PortfolioService) { s.idem = i } }

func WithFetchWorkers(n int) Option { return func(s *PortfolioService) { s.workers = n } }

func WithLogger(l *zap.Logger) Option { return func(s *PortfolioService) { s.log = l } }

func NewPortfolioService(store PortfolioStore, prices PriceSource, opts ...Option) *PortfolioService {
	s := &PortfolioService{store: store, prices: prices}
	for _, opt := range opts {
		opt(s)
	}
	if s.idgen == nil {
		s.idgen = defaultIDGen{}
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	if s.workers <= 0 {
		s.workers = DefaultFetchWorkers
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// List loads every position, applies the fixed ordering, prices them concurrently
// and returns them sorted with portfolio totals. Pinned tickers always lead.
func (s *PortfolioService) List(ctx context.Context) (domain.Portfolio, error) {
	var positions []domain.Position
	err := s.mutate(ctx, func(ctx context.Context, ps []domain.Position) ([]domain.Position, bool, error) {
		changed := applyFixedOrder(ps)
		positions = ps
		return ps, changed, nil
	})
	if err != nil {
		return domain.Portfolio{}, err
	}

	enriched := s.enrichAll(ctx, positions)
	sort.SliceStable(enriched, func(i, j int) bool {
		fi, iFixed := FixedOrder[enriched[i].Ticker]
		fj, jFixed := FixedOrder[enriched[j].Ticker]
		switch {
		case iFixed && jFixed:
			return fi < fj
		case iFixed != jFixed:
			return iFixed
		case enriched[i].Order != enriched[j].Order:
			return enriched[i].Order < enriched[j].Order
		}
		return enriched[i].Ticker < enriched[j].Ticker
	})
	return domain.Portfolio{Stocks: enriched, Summary: Summarize(enriched)}, nil
}

// Tickers returns the distinct tickers currently held.
func (s *PortfolioService) Tickers(ctx context.Context) ([]string, error) {
	ps, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ps))
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		t := domain.NormalizeTicker(p.Ticker)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Add stores a new position. A repeated non-empty idempotency key yields ErrConflict.
func (s *PortfolioService) Add(ctx context.Context, p domain.Position, idemKey string) (domain.EnrichedPosition, error) {
	if err := validate(&p); err != nil {
		return domain.EnrichedPosition{}, err
	}
	reserved := ""
	if idemKey != "" {
		reserved = "stocks:add:" + idemKey
		ok, err := s.idem.TryReserve(ctx, reserved)
		if err != nil {
			return domain.EnrichedPosition{}, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !ok {
			return domain.EnrichedPosition{}, ErrConflict
		}
	}

	err := s.mutate(ctx, func(_ context.Context, ps []domain.Position) ([]domain.Position, bool, error) {
		p.ID = s.idgen.NewID()
		if p.Order == 0 {
			p.Order = len(ps) + 1
		}
		return append(ps, p), true, nil
	})
	if err != nil {
		// the position was not stored, so a retry with the same key must be accepted
		if reserved != "" {
			if rerr := s.idem.Release(context.WithoutCancel(ctx), reserved); rerr != nil {
				s.log.Warn("idempotency_release_failed", zap.String("key", reserved), zap.Error(rerr))
			}
		}
		return domain.EnrichedPosition{}, err
	}
	s.log.Info("position_added", zap.String("id", p.ID), zap.String("ticker", p.Ticker))
	return Enrich(p, s.prices.CurrentPrice(ctx, p.Ticker)), nil
}

// Update replaces the position with id, keeping the id.
func (s *PortfolioService) Update(ctx context.Context, id string, p domain.Position) (domain.Position, error) {
	if err := validate(&p); err != nil {
		return domain.Position{}, err
	}
	p.ID = id
	err := s.mutate(ctx, func(_ context.Context, ps []domain.Position) ([]domain.Position, bool, error) {
		i := indexOf(ps, id)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		if p.Order == 0 {
			p.Order = ps[i].Order
		}
		ps[i] = p
		return ps, true, nil
	})
	if err != nil {
		return domain.Position{}, err
	}
	s.log.Info("position_updated", zap.String("id", id))
	return p, nil
}

// Delete removes the position with id and returns it.
func (s *PortfolioService) Delete(ctx context.Context, id string) (domain.Position, error) {
	var removed domain.Position
	err := s.mutate(ctx, func(_ context.Context, ps []domain.Position) ([]domain.Position, bool, error) {
		i := indexOf(ps, id)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		removed = ps[i]
		return append(ps[:i], ps[i+1:]...), true, nil
	})
	if err != nil {
		return domain.Position{}, err
	}
	s.log.Info("position_deleted", zap.String("id", id))
	return removed, nil
}

func (s *PortfolioService) History(ctx context.Context, ticker string, period domain.Period) (domain.HistorySeries, error) {
	return s.prices.History(ctx, ticker, period)
}

func (s *PortfolioService) ExchangeRate() float64 { return domain.USDToAED }

func (s *PortfolioService) mutate(ctx context.Context, fn func(context.Context, []domain.Position) ([]domain.Position, bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uow.Do(ctx, func(ctx context.Context) error {
		ps, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load portfolio: %w", err)
		}
		next, changed, err := fn(ctx, ps)
		if err != nil || !changed {
			return err
		}
		if err := s.store.Save(ctx, next); err != nil {
			return fmt.Errorf("save portfolio: %w", err)
		}
		return nil
	})
}

func (s *PortfolioService) enrichAll(ctx context.Context, ps []domain.Position) []domain.EnrichedPosition {
	out := make([]domain.EnrichedPosition, len(ps))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, p := range ps {
		g.Go(func() error {
			out[i] = Enrich(p, s.prices.CurrentPrice(ctx, p.Ticker))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func applyFixedOrder(ps []domain.Position) bool {
	changed := false
	for i := range ps {
		want := ps[i].Order
		if o, ok := FixedOrder[domain.NormalizeTicker(ps[i].Ticker)]; ok {
			want = o
		} else if want == 0 {
			want = defaultOrder
		}
		if want != ps[i].Order {
			ps[i].Order = want
			changed = true
		}
	}
	return changed
}

func validate(p *domain.Position) error {
	p.Ticker = domain.NormalizeTicker(p.Ticker)
	switch {
	case p.Ticker == "":
		return fmt.Errorf("%w: ticker is required", ErrBadRequest)
	case p.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrBadRequest)
	case p.BuyPrice < 0:
		return fmt.Errorf("%w: buy_price must not be negative", ErrBadRequest)
	}
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = "USD"
	}
	return nil
}

func indexOf(ps []domain.Position, id string) int {
	for i := range ps {
		if ps[i].ID == id {
			return i
		}
	}
	return -1
}
