package redisstore_test

import (
	"context"
	"testing"
	"time"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"
	redisstore "portfolio-service/internal/infrastructure/redis"

	"github.com/stretchr/testify/require"
)

func TestCacheStore_SaveLoad(t *testing.T) {
	client, mr := newClient(t)
	s := redisstore.NewCacheStore(client)
	ctx := context.Background()

	_, err := s.Load(ctx, domain.PriceKey("AAPL"))
	require.ErrorIs(t, err, application.ErrCacheMiss)

	rec := []byte(`{"fetchedAt":1700000000,"payload":{"ticker":"AAPL","price":1,"change_percent":0}}`)
	require.NoError(t, s.Save(ctx, domain.PriceKey("AAPL"), rec))
	got, err := s.Load(ctx, domain.PriceKey("AAPL"))
	require.NoError(t, err)
	require.Equal(t, rec, got)

	require.True(t, mr.Exists("quote:AAPL:price"))
	require.Zero(t, mr.TTL("quote:AAPL:price"))
}

func TestCacheStore_StaleSurvivesTime(t *testing.T) {
	client, mr := newClient(t)
	c := application.NewQuoteCache(redisstore.NewCacheStore(client), time.Minute)
	ctx := context.Background()
	key := domain.HistoryKey("MSFT", domain.Period6M)

	require.NoError(t, c.Put(ctx, key, domain.HistorySeries{{Date: "2025-01-02", Price: 3}}))
	mr.FastForward(24 * time.Hour)

	var h domain.HistorySeries
	require.True(t, c.GetStale(ctx, key, &h))
	require.Len(t, h, 1)
}

func TestCacheStore_ServerDown(t *testing.T) {
	client, mr := newClient(t)
	s := redisstore.NewCacheStore(client)
	mr.Close()

	_, err := s.Load(context.Background(), domain.PriceKey("AAPL"))
	require.Error(t, err)
	require.NotErrorIs(t, err, application.ErrCacheMiss)
}
