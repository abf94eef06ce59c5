package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	infraconfig "portfolio-service/internal/infrastructure/config"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	CORSOrigins []string
	// Portfolio storage
	Storage       string
	PortfolioFile string
	DatabaseURL   string
	// Market data
	Provider     string
	UseMockData  bool
	YahooBaseURL string
	FetchWorkers int
	// Cache
	CacheBackend   string
	CachePath      string
	CacheFreshness time.Duration
	SentinelTTL    time.Duration
	// Retry and pacing
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxJitter   time.Duration
	Pacing           string
	RateInterval     time.Duration
	RateBurst        int
	UpstreamTimeout  time.Duration
	TickerDeadline   time.Duration
	// Redis (cache backend and idempotency)
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	// Worker
	WarmCron    string
	WarmOnStart bool
}

// source resolves a key from the environment first, then the optional config file.
type source map[string]string

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return def
}

func (s source) getInt(key string, def int) int { return atoiDef(s.get(key, ""), def) }

func (s source) getMS(key string, def int) time.Duration {
	return time.Duration(s.getInt(key, def)) * time.Millisecond
}

func (s source) getBool(key string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s.get(key, "")))
	if err != nil {
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

// Load reads environment variables and applies defaults. When CONFIG_FILE points
// to a YAML file of KEY: value pairs, those values sit between env and defaults.
func Load() (Config, error) {
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		for k, v := range raw {
			src[strings.ToUpper(k)] = fmt.Sprint(v)
		}
	}

	cfg := Config{
		Env:                src.get("ENV", "local"),
		LogLevel:           src.get("LOG_LEVEL", "info"),
		Port:               src.get("PORT", infraconfig.DefaultHTTPPort),
		CORSOrigins:        splitList(src.get("CORS_ORIGINS", infraconfig.DefaultCORSOrigins)),
		Storage:            src.get("STORAGE", "file"),
		PortfolioFile:      src.get("PORTFOLIO_FILE", infraconfig.DefaultPortfolioFile),
		DatabaseURL:        src.get("DATABASE_URL", ""),
		Provider:           src.get("PROVIDER", "yahoo"),
		UseMockData:        src.get("USE_MOCK_DATA", "false") == "true",
		YahooBaseURL:       src.get("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		FetchWorkers:       src.getInt("FETCH_WORKERS", 4),
		CacheBackend:       src.get("CACHE_BACKEND", "sqlite"),
		CachePath:          src.get("CACHE_PATH", infraconfig.DefaultCachePath),
		CacheFreshness:     src.getMS("CACHE_FRESHNESS_MS", 300000),
		SentinelTTL:        src.getMS("SENTINEL_TTL_MS", 30000),
		RetryMaxAttempts:   src.getInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:     src.getMS("RETRY_BASE_DELAY_MS", 2000),
		RetryMaxJitter:     src.getMS("RETRY_MAX_JITTER_MS", 1000),
		Pacing:             src.get("PACING", "limiter"),
		RateInterval:       src.getMS("UPSTREAM_RATE_INTERVAL_MS", 2000),
		RateBurst:          src.getInt("UPSTREAM_BURST", 3),
		UpstreamTimeout:    src.getMS("UPSTREAM_TIMEOUT_MS", 4000),
		TickerDeadline:     src.getMS("TICKER_DEADLINE_MS", 20000),
		RedisAddr:          src.get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      src.get("REDIS_PASSWORD", ""),
		RedisDB:            src.getInt("REDIS_DB", 0),
		IdempotencyBackend: src.get("IDEMPOTENCY_BACKEND", "none"),
		IdempotencyTTL:     src.getMS("IDEMPOTENCY_TTL_MS", 86400000),
		WarmCron:           src.get("WARM_CRON", infraconfig.DefaultWarmCron),
		WarmOnStart:        src.getBool("WARM_ON_START", true),
	}
	if cfg.UseMockData {
		cfg.Provider = "mock"
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.RetryMaxAttempts < 1:
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	case c.FetchWorkers < 1:
		return fmt.Errorf("FETCH_WORKERS must be at least 1, got %d", c.FetchWorkers)
	case c.CacheFreshness <= 0:
		return fmt.Errorf("CACHE_FRESHNESS_MS must be positive")
	case c.Storage == "pg" && c.DatabaseURL == "":
		return fmt.Errorf("DATABASE_URL is required for STORAGE=pg")
	case c.RateInterval < 0:
		return fmt.Errorf("UPSTREAM_RATE_INTERVAL_MS must not be negative")
	case c.Pacing == "limiter" && c.RateBurst < 1:
		return fmt.Errorf("UPSTREAM_BURST must be at least 1 with PACING=limiter, got %d", c.RateBurst)
	}
	return nil
}
