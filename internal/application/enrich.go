package application

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"portfolio-service/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Enrich computes value and profit/loss for p at quote q. A zero cost basis yields
// a zero percentage. Sentinel quotes are treated like any other zero price.
func Enrich(p domain.Position, q domain.Quote) domain.EnrichedPosition {
	qty := decimal.NewFromFloat(p.Quantity)
	cost := decimal.NewFromFloat(p.BuyPrice).Mul(qty)
	value := decimal.NewFromFloat(q.Price).Mul(qty)
	pl := value.Sub(cost)

	return domain.EnrichedPosition{
		Position:          p,
		CurrentPrice:      q.Price,
		PriceChange:       q.ChangePercent,
		CurrentValue:      value.InexactFloat64(),
		ProfitLoss:        pl.InexactFloat64(),
		ProfitLossPercent: percentOf(pl, cost).InexactFloat64(),
	}
}

// Summarize totals the enriched positions and renders display strings in USD and AED.
func Summarize(positions []domain.EnrichedPosition) domain.Summary {
	value, cost := decimal.Zero, decimal.Zero
	for _, p := range positions {
		qty := decimal.NewFromFloat(p.Quantity)
		value = value.Add(decimal.NewFromFloat(p.CurrentPrice).Mul(qty))
		cost = cost.Add(decimal.NewFromFloat(p.BuyPrice).Mul(qty))
	}
	pl := value.Sub(cost)
	aed := value.Mul(decimal.NewFromFloat(domain.USDToAED))

	return domain.Summary{
		TotalValue:             value.InexactFloat64(),
		TotalCost:              cost.InexactFloat64(),
		TotalProfitLoss:        pl.InexactFloat64(),
		TotalProfitLossPercent: percentOf(pl, cost).InexactFloat64(),
		TotalValueDisplay:      display(value, "USD"),
		TotalValueAEDDisplay:   display(aed, "AED"),
	}
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func display(v decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	minor := v.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}
