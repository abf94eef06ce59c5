package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"portfolio-service/internal/application"
	"portfolio-service/internal/config"
	"portfolio-service/internal/infrastructure/filestore"
	"portfolio-service/internal/infrastructure/logx"
	"portfolio-service/internal/infrastructure/memory"
	"portfolio-service/internal/infrastructure/pg"
	"portfolio-service/internal/infrastructure/provider"
	redisstore "portfolio-service/internal/infrastructure/redis"
	"portfolio-service/internal/infrastructure/sqlite"
	"portfolio-service/internal/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

func noop() {}

func ProvideLogger(cfg config.Config) *zap.Logger {
	logx.SetLevel(cfg.LogLevel)
	return logx.L().With(zap.String("env", cfg.Env))
}

// ProvideRedisClient returns nil when neither the cache nor idempotency uses redis.
func ProvideRedisClient(cfg config.Config) (*redis.Client, func()) {
	if cfg.CacheBackend != "redis" && cfg.IdempotencyBackend != "redis" {
		return nil, noop
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return client, func() { _ = client.Close() }
}

func ProvideCacheBackend(ctx context.Context, cfg config.Config, client *redis.Client, log *zap.Logger) (application.CacheBackend, func(), error) {
	switch cfg.CacheBackend {
	case "sqlite", "":
		store, err := sqlite.Open(ctx, cfg.CachePath, log)
		if err != nil {
			return nil, noop, fmt.Errorf("open quote cache: %w", err)
		}
		log.Info("cache_backend", zap.String("kind", "sqlite"), zap.String("path", cfg.CachePath))
		return store, func() { _ = store.Close() }, nil
	case "redis":
		log.Info("cache_backend", zap.String("kind", "redis"), zap.String("addr", cfg.RedisAddr))
		return redisstore.NewCacheStore(client), noop, nil
	case "memory":
		log.Info("cache_backend", zap.String("kind", "memory"))
		return memory.NewCacheStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported CACHE_BACKEND=%q", cfg.CacheBackend)
	}
}

func ProvidePacer(cfg config.Config) retry.Pacer {
	switch cfg.Pacing {
	case "jitter":
		return retry.NewJitterPacer()
	case "none":
		return nil
	default:
		return rate.NewLimiter(rate.Every(cfg.RateInterval), cfg.RateBurst)
	}
}

func ProvideRetryPolicy(cfg config.Config, log *zap.Logger) retry.Policy {
	return retry.Policy{
		MaxAttempts:    cfg.RetryMaxAttempts,
		BaseDelay:      cfg.RetryBaseDelay,
		MaxJitter:      cfg.RetryMaxJitter,
		AttemptTimeout: cfg.UpstreamTimeout,
		Pacer:          ProvidePacer(cfg),
		Notify: func(attempt int, err error, wait time.Duration) {
			log.Warn("upstream_retry", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		},
	}
}

func ProvideMarketData(cfg config.Config) application.MarketData {
	return &provider.Yahoo{
		BaseURL: cfg.YahooBaseURL,
		Client:  &http.Client{Timeout: cfg.UpstreamTimeout},
	}
}

func ProvideQuoteService(ctx context.Context, cfg config.Config, client *redis.Client, log *zap.Logger) (*application.QuoteService, func(), error) {
	backend, cleanup, err := ProvideCacheBackend(ctx, cfg, client, log)
	if err != nil {
		return nil, noop, err
	}
	cache := application.NewQuoteCache(backend, cfg.CacheFreshness, application.WithCacheLogger(log))
	opts := []application.QuoteOption{
		application.WithSentinelTTL(cfg.SentinelTTL),
		application.WithTickerDeadline(cfg.TickerDeadline),
		application.WithQuoteLogger(log),
	}
	if cfg.Provider == "mock" {
		log.Info("market_data", zap.String("provider", "mock"))
		opts = append(opts, application.WithMockData(provider.NewMock(uint64(time.Now().UnixNano()))))
	} else {
		log.Info("market_data", zap.String("provider", "yahoo"), zap.String("base_url", cfg.YahooBaseURL))
	}
	svc := application.NewQuoteService(ProvideMarketData(cfg), cache, ProvideRetryPolicy(cfg, log), opts...)
	return svc, cleanup, nil
}

// Storage bundles the portfolio store with its transaction boundary and readiness probe.
type Storage struct {
	Store application.PortfolioStore
	UoW   application.UnitOfWork
	Ping  func(ctx context.Context) error
}

func ProvideStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (Storage, func(), error) {
	switch cfg.Storage {
	case "file", "":
		log.Info("portfolio_storage", zap.String("kind", "file"), zap.String("path", cfg.PortfolioFile))
		return Storage{Store: filestore.NewPortfolioStore(cfg.PortfolioFile), UoW: application.NoopUoW{}}, noop, nil
	case "pg":
		if cfg.DatabaseURL == "" {
			return Storage{}, noop, ErrMissingDBURL
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return Storage{}, noop, err
		}
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return Storage{}, noop, err
		}
		repo := pg.NewPositionRepo(db)
		if cfg.PortfolioFile != "" {
			if _, err := repo.SeedIfEmpty(ctx, filestore.NewPortfolioStore(cfg.PortfolioFile)); err != nil {
				db.Close()
				return Storage{}, noop, err
			}
		}
		cleanup := func() {
			log.Info("closing pg")
			db.Close()
		}
		return Storage{
			Store: repo,
			UoW:   &pg.UnitOfWork{Pool: db.Pool},
			Ping:  db.Ping,
		}, cleanup, nil
	default:
		return Storage{}, noop, fmt.Errorf("unsupported STORAGE=%q", cfg.Storage)
	}
}

func ProvideIdempotency(cfg config.Config, client *redis.Client) application.IdempotencyStore {
	if cfg.IdempotencyBackend != "redis" || client == nil {
		return application.NoopIdempotency{}
	}
	return redisstore.New(client, cfg.IdempotencyTTL)
}
