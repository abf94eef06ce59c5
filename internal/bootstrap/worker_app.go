package bootstrap

import (
	"context"
	"fmt"

	"portfolio-service/internal/config"
	"portfolio-service/internal/domain"
	"portfolio-service/internal/infrastructure/worker"

	"go.uber.org/zap"
)

type WorkerApp func(ctx context.Context) error

func InitWorkerApp(ctx context.Context, cfg config.Config) (WorkerApp, func(), error) {
	app, cleanup, err := Build(ctx, cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init worker: %w", err)
	}
	w := &worker.CacheWarmer{
		Holdings:    app.Portfolio,
		Prices:      app.Quotes,
		Schedule:    cfg.WarmCron,
		WarmOnStart: cfg.WarmOnStart,
		Periods:     []domain.Period{domain.DefaultPeriod},
		Workers:     cfg.FetchWorkers,
		Log:         app.Log.With(zap.String("worker", "warmer")),
	}
	run := func(ctx context.Context) error {
		w.Start(ctx)
		return nil
	}
	return run, cleanup, nil
}
