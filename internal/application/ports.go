package application

import (
	"context"

	"portfolio-service/internal/domain"
)

// CacheBackend persists raw cache records. Load returns ErrCacheMiss for absent keys.
type CacheBackend interface {
	Load(ctx context.Context, key domain.CacheKey) ([]byte, error)
	Save(ctx context.Context, key domain.CacheKey, record []byte) error
}

// MarketData performs a single upstream call with no retry.
type MarketData interface {
	FetchCurrent(ctx context.Context, ticker string) (domain.Quote, error)
	FetchHistory(ctx context.Context, ticker string, period domain.Period) (domain.HistorySeries, error)
}

type PortfolioStore interface {
	Load(ctx context.Context) ([]domain.Position, error)
	Save(ctx context.Context, positions []domain.Position) error
}

// PriceSource is what the portfolio layer needs from the quote engine.
type PriceSource interface {
	CurrentPrice(ctx context.Context, ticker string) domain.Quote
	History(ctx context.Context, ticker string, period domain.Period) (domain.HistorySeries, error)
}
