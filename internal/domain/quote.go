package domain

import "strings"

// Quote is a point-in-time price observation for a ticker.
// Price == 0 && ChangePercent == 0 means the fetch failed.
type Quote struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

func Unavailable(ticker string) Quote { return Quote{Ticker: ticker} }

func (q Quote) IsUnavailable() bool { return q.Price == 0 && q.ChangePercent == 0 }

func NormalizeTicker(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// ChangePercent returns the intraday change of close against open, 0 when open is not positive.
func ChangePercent(open, close float64) float64 {
	if open <= 0 {
		return 0
	}
	return (close - open) / open * 100
}
