package provider

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"
)

// BasePrices seeds the mock generator. Unknown tickers get a random base in [50, 500].
var BasePrices = map[string]float64{
	"AAPL":     175,
	"MSFT":     350,
	"GOOGL":    140,
	"AMZN":     130,
	"META":     300,
	"TSLA":     250,
	"NVDA":     400,
	"BTC-USD":  50000,
	"ETH-USD":  3000,
	"XRP-USD":  0.5,
	"SPLG":     55,
	"QQQM":     170,
	"DOGE-USD": 0.1,
	"ADA-USD":  0.4,
}

// Mock produces plausible random quotes without touching the network. It never fails.
type Mock struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

var _ application.MarketData = (*Mock)(nil)

func NewMock(seed uint64) *Mock {
	return &Mock{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: time.Now}
}

func (m *Mock) uniform(lo, hi float64) float64 { return lo + m.rnd.Float64()*(hi-lo) }

func (m *Mock) base(ticker string) float64 {
	if p, ok := BasePrices[ticker]; ok {
		return p
	}
	return m.uniform(50, 500)
}

func (m *Mock) FetchCurrent(_ context.Context, ticker string) (domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := m.base(ticker)
	return domain.Quote{
		Ticker:        ticker,
		Price:         base * (1 + m.uniform(-0.05, 0.05)),
		ChangePercent: m.uniform(-3, 3),
	}, nil
}

// FetchHistory walks from the base price with a gentle upward drift, one point
// per calendar day ending yesterday.
func (m *Mock) FetchHistory(_ context.Context, ticker string, period domain.Period) (domain.HistorySeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	days := period.Days()
	base := m.base(ticker)
	today := m.now()
	out := make(domain.HistorySeries, 0, days)
	for i := 0; i < days; i++ {
		at := today.AddDate(0, 0, -(days - i))
		price := base * (1 + float64(i)/float64(days)*0.2 + m.uniform(-0.02, 0.03))
		out = append(out, domain.NewHistoryPoint(at, price))
	}
	return out, nil
}
