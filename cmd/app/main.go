package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/bootstrap"
	"github.com/Domenick1991/tripbooking/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcs, err := bootstrap.NewServices(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("wire services", zap.Error(err))
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			lg.Warn("close services", zap.Error(err))
		}
	}()

	err = bootstrap.Run(ctx, cfg, lg, bootstrap.Handlers{
		Catalog:  svcs.Catalog,
		Promos:   svcs.Promos,
		Bookings: svcs.Bookings,
	})
	if err != nil {
		lg.Error("server error", zap.Error(err))
	}
}
