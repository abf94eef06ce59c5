package memory

import (
	"context"
	"testing"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestCacheStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewCacheStore()

	_, err := s.Load(ctx, domain.PriceKey("AAPL"))
	require.ErrorIs(t, err, application.ErrCacheMiss)

	rec := []byte(`{"fetchedAt":1,"payload":{}}`)
	require.NoError(t, s.Save(ctx, domain.PriceKey("AAPL"), rec))
	rec[0] = 'x'

	got, err := s.Load(ctx, domain.PriceKey("AAPL"))
	require.NoError(t, err)
	require.Equal(t, byte('{'), got[0], "stored record is a copy")
}
