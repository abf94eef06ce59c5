package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"portfolio-service/internal/bootstrap"
	"portfolio-service/internal/config"
	"portfolio-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, cleanup, err := bootstrap.InitWorkerApp(ctx, cfg)
	defer cleanup()
	if err != nil {
		log.Fatal("init worker", zap.Error(err))
	}
	if err := run(ctx); err != nil {
		log.Fatal("worker exited", zap.Error(err))
	}
}
