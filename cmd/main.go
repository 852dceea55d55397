package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"recipe-service/cmd/config"
	migration "recipe-service/cmd/database/migrate"
	"recipe-service/internal/utils"
	applog "recipe-service/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := utils.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := applog.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Fatal("connect database", "error", err)
	}
	if err := migration.Migrate(db); err != nil {
		logger.Fatal("migrate database", "error", err)
	}

	deps, err := config.NewDependencies(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("init dependencies", "error", err)
	}
	defer deps.Queue.Close()

	runAPI := cfg.AppMode == "api" || cfg.AppMode == "all"
	runWorker := cfg.AppMode == "worker" || cfg.AppMode == "all"
	if !runAPI && !runWorker {
		logger.Fatal("unknown APP_MODE", "mode", cfg.AppMode)
	}

	g, gctx := errgroup.WithContext(ctx)
	if runAPI {
		app, err := config.NewApp(deps)
		if err != nil {
			logger.Fatal("init http app", "error", err)
		}
		g.Go(func() error {
			logger.Info("http server listening", "port", cfg.AppPort)
			return app.Listen(":" + cfg.AppPort)
		})
		g.Go(func() error {
			<-gctx.Done()
			return app.ShutdownWithTimeout(shutdownTimeout)
		})
	}
	if runWorker {
		worker := config.NewWorker(deps)
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}
