package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
	DefaultPortfolioFile   = "data/portfolio.json"
	DefaultCachePath       = "data/quote_cache.db"
	DefaultWarmCron        = "0 */5 * * * *"
	DefaultCORSOrigins     = "http://localhost:3000"
)
