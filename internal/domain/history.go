package domain

import "time"

const DateLayout = "2006-01-02"

type HistoryPoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// HistorySeries is ordered ascending by date.
type HistorySeries []HistoryPoint

func NewHistoryPoint(t time.Time, price float64) HistoryPoint {
	return HistoryPoint{Date: t.Format(DateLayout), Price: price}
}
