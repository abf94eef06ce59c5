package bootstrap

import (
	"context"
	"fmt"

	"portfolio-service/internal/application"
	"portfolio-service/internal/config"

	"go.uber.org/zap"
)

// App is the fully wired service graph shared by the API and the worker.
type App struct {
	Config    config.Config
	Log       *zap.Logger
	Quotes    *application.QuoteService
	Portfolio *application.PortfolioService
	Ready     func(ctx context.Context) error
}

// Build wires every dependency described by cfg. The returned cleanup releases
// them in reverse order and is safe to call even when Build fails.
func Build(ctx context.Context, cfg config.Config) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	log := ProvideLogger(cfg)
	client, closeRedis := ProvideRedisClient(cfg)
	cleanups = append(cleanups, closeRedis)

	quotes, closeCache, err := ProvideQuoteService(ctx, cfg, client, log)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init quote service: %w", err)
	}
	cleanups = append(cleanups, closeCache)

	storage, closeStorage, err := ProvideStorage(ctx, cfg, log)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init storage: %w", err)
	}
	cleanups = append(cleanups, closeStorage)

	portfolio := application.NewPortfolioService(storage.Store, quotes,
		application.WithUnitOfWork(storage.UoW),
		application.WithIdempotency(ProvideIdempotency(cfg, client)),
		application.WithFetchWorkers(cfg.FetchWorkers),
		application.WithLogger(log),
	)

	return &App{
		Config:    cfg,
		Log:       log,
		Quotes:    quotes,
		Portfolio: portfolio,
		Ready:     storage.Ping,
	}, cleanup, nil
}
