package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"
	"portfolio-service/internal/infrastructure/filestore"
	"portfolio-service/internal/infrastructure/memory"
	redisstore "portfolio-service/internal/infrastructure/redis"
	"portfolio-service/internal/retry"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubMarket struct {
	prices  map[string]float64
	histErr error
}

func (m stubMarket) FetchCurrent(_ context.Context, ticker string) (domain.Quote, error) {
	p, ok := m.prices[ticker]
	if !ok {
		return domain.Quote{}, domain.ErrNoData
	}
	return domain.Quote{Ticker: ticker, Price: p, ChangePercent: 1.5}, nil
}

func (m stubMarket) FetchHistory(_ context.Context, ticker string, _ domain.Period) (domain.HistorySeries, error) {
	if m.histErr != nil {
		return nil, m.histErr
	}
	return domain.HistorySeries{{Date: "2024-01-02", Price: m.prices[ticker]}}, nil
}

func setup(t *testing.T, market stubMarket) (http.Handler, *Server) {
	t.Helper()
	cache := application.NewQuoteCache(memory.NewCacheStore(), time.Minute)
	quotes := application.NewQuoteService(market, cache, retry.Policy{MaxAttempts: 1})

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := filestore.NewPortfolioStore(filepath.Join(t.TempDir(), "portfolio.json"))
	svc := application.NewPortfolioService(store, quotes,
		application.WithIdempotency(redisstore.New(rdb, time.Hour)))
	srv := NewServer(svc)
	return NewRouter(srv), srv
}

func defaultMarket() stubMarket {
	return stubMarket{prices: map[string]float64{"AAPL": 200, "SPLG": 60}}
}

func do(h http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := setup(t, defaultMarket())
	rec := do(h, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz_PingFails(t *testing.T) {
	h, srv := setup(t, defaultMarket())
	srv.SetReadyCheck(func(context.Context) error { return errors.New("down") })
	rec := do(h, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"code":503,"message":"storage not ready"}`, rec.Body.String())
}

func TestAddAndList(t *testing.T) {
	h, _ := setup(t, defaultMarket())

	rec := do(h, http.MethodPost, "/api/stocks", map[string]any{"ticker": "aapl", "quantity": 2, "buy_price": 150}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var added domain.EnrichedPosition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.Equal(t, "AAPL", added.Ticker)
	require.NotEmpty(t, added.ID)
	require.InDelta(t, 400, added.CurrentValue, 1e-9)
	require.InDelta(t, 100, added.ProfitLoss, 1e-9)

	rec = do(h, http.MethodPost, "/stocks", map[string]any{"ticker": "SPLG", "quantity": 1, "buy_price": 50}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(h, http.MethodGet, "/api/stocks", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pf domain.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pf))
	require.Len(t, pf.Stocks, 2)
	require.Equal(t, "SPLG", pf.Stocks[0].Ticker)
	require.Equal(t, 1, pf.Stocks[0].Order)
	require.InDelta(t, 460, pf.Summary.TotalValue, 1e-9)
	require.Equal(t, "$460.00", pf.Summary.TotalValueDisplay)
}

func TestAdd_Validation(t *testing.T) {
	h, _ := setup(t, defaultMarket())
	rec := do(h, http.MethodPost, "/stocks", map[string]any{"ticker": "", "quantity": 1}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/stocks", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"code":400,"message":"invalid JSON body"}`, rec.Body.String())
}

func TestAdd_IdempotencyConflict(t *testing.T) {
	h, _ := setup(t, defaultMarket())
	body := map[string]any{"ticker": "AAPL", "quantity": 1, "buy_price": 100}
	hdr := map[string]string{"X-Idempotency-Key": "k1"}

	require.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/stocks", body, hdr).Code)
	require.Equal(t, http.StatusConflict, do(h, http.MethodPost, "/stocks", body, hdr).Code)
}

func TestUpdateAndDelete(t *testing.T) {
	h, _ := setup(t, defaultMarket())
	rec := do(h, http.MethodPost, "/stocks", map[string]any{"ticker": "AAPL", "quantity": 1, "buy_price": 100}, nil)
	var added domain.EnrichedPosition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))

	rec = do(h, http.MethodPut, "/api/stocks/"+added.ID, map[string]any{"ticker": "AAPL", "quantity": 5, "buy_price": 90}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, added.ID, updated.ID)
	require.InDelta(t, 5, updated.Quantity, 1e-9)

	rec = do(h, http.MethodDelete, "/stocks/"+added.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodDelete, "/stocks/"+added.ID, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"code":404,"message":"Stock not found"}`, rec.Body.String())
}

func TestUpdate_NotFound(t *testing.T) {
	h, _ := setup(t, defaultMarket())
	rec := do(h, http.MethodPut, "/stocks/nope", map[string]any{"ticker": "AAPL", "quantity": 1}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory(t *testing.T) {
	h, _ := setup(t, defaultMarket())
	rec := do(h, http.MethodGet, "/api/stocks/aapl/history?period=1mo", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var series domain.HistorySeries
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 1)
	require.InDelta(t, 200, series[0].Price, 1e-9)
}

func TestHistory_Unavailable(t *testing.T) {
	h, _ := setup(t, stubMarket{histErr: errors.New("boom")})
	rec := do(h, http.MethodGet, "/stocks/AAPL/history", nil, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["error"], "boom")
}

func TestExchangeRate(t *testing.T) {
	h, _ := setup(t, defaultMarket())
	rec := do(h, http.MethodGet, "/api/exchange-rate", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"USD_to_AED":3.67}`, rec.Body.String())
}

func TestNotFound_JSON(t *testing.T) {
	h, _ := setup(t, defaultMarket())
	rec := do(h, http.MethodGet, "/api/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"API endpoint not found"}`, rec.Body.String())
}

func TestCORS_AllowedOrigin(t *testing.T) {
	_, srv := setup(t, defaultMarket())
	srv.SetAllowedOrigins([]string{"http://localhost:3000"})
	h := NewRouter(srv)

	req := httptest.NewRequest(http.MethodOptions, "/api/stocks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(h, http.MethodGet, "/api/exchange-rate", nil, map[string]string{"Origin": "https://evil.example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
