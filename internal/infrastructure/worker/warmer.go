package worker

import (
	"context"
	"time"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ application.Worker = (*CacheWarmer)(nil)

type Holdings interface {
	Tickers(ctx context.Context) ([]string, error)
}

// CacheWarmer refreshes quotes for every held ticker on a cron schedule so that
// portfolio reads are served from a fresh cache.
type CacheWarmer struct {
	Holdings Holdings
	Prices   application.PriceSource

	// Schedule is a six-field cron expression (seconds first) or a descriptor like "@every 5m".
	Schedule    string
	WarmOnStart bool
	// Periods, when set, also warms the history series for each ticker.
	Periods []domain.Period
	Workers int
	Log     *zap.Logger
}

func (w *CacheWarmer) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(w.Schedule, func() { w.Warm(ctx, log) }); err != nil {
		log.Error("warmer_bad_schedule", zap.String("schedule", w.Schedule), zap.Error(err))
		return
	}

	log.Info("warmer_started", zap.String("schedule", w.Schedule))
	if w.WarmOnStart {
		w.Warm(ctx, log)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("warmer_stopped")
}

// Warm runs one refresh pass and reports how many tickers yielded a real quote.
func (w *CacheWarmer) Warm(ctx context.Context, log *zap.Logger) int {
	start := time.Now()
	tickers, err := w.Holdings.Tickers(ctx)
	if err != nil {
		log.Warn("warm_list_failed", zap.Error(err))
		return 0
	}

	ok := make([]bool, len(tickers))
	var g errgroup.Group
	limit := w.Workers
	if limit <= 0 {
		limit = application.DefaultFetchWorkers
	}
	g.SetLimit(limit)
	for i, t := range tickers {
		g.Go(func() error {
			q := w.Prices.CurrentPrice(ctx, t)
			ok[i] = !q.IsUnavailable()
			for _, p := range w.Periods {
				if _, err := w.Prices.History(ctx, t, p); err != nil {
					log.Debug("warm_history_failed", zap.String("ticker", t), zap.String("period", string(p)), zap.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	warmed := 0
	for _, v := range ok {
		if v {
			warmed++
		}
	}
	log.Info("warm_done",
		zap.Int("tickers", len(tickers)),
		zap.Int("warmed", warmed),
		zap.Duration("duration", time.Since(start)),
	)
	return warmed
}
