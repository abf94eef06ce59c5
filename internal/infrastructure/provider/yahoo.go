package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"
	"portfolio-service/internal/infrastructure/httpx"
)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

const yahooChartPath = "/v8/finance/chart/"

// Yahoo fetches quotes from the public Yahoo Finance chart API. Each call is a
// single request; retrying is the caller's business.
type Yahoo struct {
	BaseURL string
	Client  *http.Client
}

var _ application.MarketData = (*Yahoo)(nil)

type yahooChart struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooResult struct {
	Meta struct {
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type bar struct {
	at          time.Time
	open, close float64
}

func (r yahooResult) bars() []bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	out := make([]bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil || *q.Close[i] <= 0 {
			continue
		}
		b := bar{at: time.Unix(ts, 0).UTC(), close: *q.Close[i]}
		if i < len(q.Open) && q.Open[i] != nil {
			b.open = *q.Open[i]
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out
}

func (y *Yahoo) FetchCurrent(ctx context.Context, ticker string) (domain.Quote, error) {
	res, err := y.chart(ctx, ticker, "1d")
	if err != nil {
		return domain.Quote{}, err
	}
	if bars := res.bars(); len(bars) > 0 {
		last := bars[len(bars)-1]
		return domain.Quote{
			Ticker:        ticker,
			Price:         last.close,
			ChangePercent: domain.ChangePercent(last.open, last.close),
		}, nil
	}
	if p := res.Meta.RegularMarketPrice; p != nil && *p > 0 {
		var prev float64
		if res.Meta.ChartPreviousClose != nil {
			prev = *res.Meta.ChartPreviousClose
		}
		return domain.Quote{Ticker: ticker, Price: *p, ChangePercent: domain.ChangePercent(prev, *p)}, nil
	}
	return domain.Quote{}, fmt.Errorf("yahoo %s: %w", ticker, domain.ErrNoData)
}

func (y *Yahoo) FetchHistory(ctx context.Context, ticker string, period domain.Period) (domain.HistorySeries, error) {
	period = domain.ParsePeriod(string(period))
	res, err := y.chart(ctx, ticker, string(period))
	if err != nil {
		return nil, err
	}
	bars := res.bars()
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s %s: %w", ticker, period, domain.ErrNoData)
	}
	out := make(domain.HistorySeries, 0, len(bars))
	for _, b := range bars {
		out = append(out, domain.NewHistoryPoint(b.at, b.close))
	}
	return out, nil
}

func (y *Yahoo) chart(ctx context.Context, ticker, rng string) (yahooResult, error) {
	base := y.BaseURL
	if base == "" {
		base = DefaultYahooBaseURL
	}
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", rng)
	u := strings.TrimRight(base, "/") + yahooChartPath + url.PathEscape(ticker) + "?" + q.Encode()

	var body yahooChart
	c := httpx.Client{HTTP: y.Client}
	if err := c.GetJSON(ctx, u, &body); err != nil {
		return yahooResult{}, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	if body.Chart.Error != nil {
		return yahooResult{}, fmt.Errorf("yahoo %s: %s: %s", ticker, body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return yahooResult{}, fmt.Errorf("yahoo %s: %w", ticker, domain.ErrNoData)
	}
	return body.Chart.Result[0], nil
}
