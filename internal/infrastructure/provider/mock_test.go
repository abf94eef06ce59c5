package provider

import (
	"context"
	"testing"
	"time"

	"portfolio-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestMock_CurrentWithinBand(t *testing.T) {
	t.Parallel()
	m := NewMock(1)
	for i := 0; i < 200; i++ {
		q, err := m.FetchCurrent(context.Background(), "AAPL")
		require.NoError(t, err)
		require.GreaterOrEqual(t, q.Price, 175*0.95)
		require.LessOrEqual(t, q.Price, 175*1.05)
		require.GreaterOrEqual(t, q.ChangePercent, -3.0)
		require.LessOrEqual(t, q.ChangePercent, 3.0)
	}
}

func TestMock_UnknownTickerBase(t *testing.T) {
	t.Parallel()
	m := NewMock(2)
	q, err := m.FetchCurrent(context.Background(), "UNLISTED")
	require.NoError(t, err)
	require.GreaterOrEqual(t, q.Price, 50*0.95)
	require.LessOrEqual(t, q.Price, 500*1.05)
}

func TestMock_HistoryShape(t *testing.T) {
	t.Parallel()
	m := NewMock(3)
	m.now = func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) }

	h, err := m.FetchHistory(context.Background(), "MSFT", domain.Period3M)
	require.NoError(t, err)
	require.Len(t, h, 90)
	require.Equal(t, "2025-03-17", h[0].Date)
	require.Equal(t, "2025-06-14", h[len(h)-1].Date)
	for i := 1; i < len(h); i++ {
		require.Less(t, h[i-1].Date, h[i].Date)
	}
	for i, p := range h {
		drift := 1 + float64(i)/90*0.2
		require.GreaterOrEqual(t, p.Price, 350*(drift-0.02))
		require.LessOrEqual(t, p.Price, 350*(drift+0.03))
	}

	h, err = m.FetchHistory(context.Background(), "MSFT", domain.ParsePeriod("bogus"))
	require.NoError(t, err)
	require.Len(t, h, 365)
}
