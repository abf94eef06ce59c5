package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"portfolio-service/internal/bootstrap"
	"portfolio-service/internal/config"
	infraconfig "portfolio-service/internal/infrastructure/config"
	httpserver "portfolio-service/internal/infrastructure/http"
	"portfolio-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.Build(ctx, cfg)
	defer cleanup()
	if err != nil {
		logger.Fatal("bootstrap", zap.Error(err))
	}

	srv := httpserver.NewServer(app.Portfolio)
	srv.SetAllowedOrigins(cfg.CORSOrigins)
	if app.Ready != nil {
		srv.SetReadyCheck(app.Ready)
	}
	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:    addr,
		Handler: httpserver.NewRouter(srv),
	}

	go func() {
		app.Log.Info("server started", zap.String("addr", addr), zap.String("provider", cfg.Provider))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	app.Log.Info("server stopped")
}
