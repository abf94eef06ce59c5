package domain

// Position is one holding as persisted by the portfolio store.
type Position struct {
	ID       string  `json:"id"`
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
	BuyPrice float64 `json:"buy_price"`
	BuyDate  string  `json:"buy_date,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Order    int     `json:"order"`
}

// EnrichedPosition is a Position decorated with live pricing, computed on read.
type EnrichedPosition struct {
	Position
	CurrentPrice      float64 `json:"current_price"`
	PriceChange       float64 `json:"price_change"`
	CurrentValue      float64 `json:"current_value"`
	ProfitLoss        float64 `json:"profit_loss"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`
}

type Summary struct {
	TotalValue             float64 `json:"total_value"`
	TotalCost              float64 `json:"total_cost"`
	TotalProfitLoss        float64 `json:"total_profit_loss"`
	TotalProfitLossPercent float64 `json:"total_profit_loss_percent"`
	TotalValueDisplay      string  `json:"total_value_display"`
	TotalValueAEDDisplay   string  `json:"total_value_aed_display"`
}

type Portfolio struct {
	Stocks  []EnrichedPosition `json:"stocks"`
	Summary Summary            `json:"summary"`
}

// USDToAED is the fixed conversion rate served by the exchange-rate endpoint.
const USDToAED = 3.67
