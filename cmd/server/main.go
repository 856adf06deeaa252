package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/netcollect/backend/internal/bootstrap"
	"github.com/netcollect/backend/internal/infrastructure/config"
	"github.com/netcollect/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("Failed to load .env: " + err.Error())
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting netcollect",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start", zap.Error(err))
		os.Exit(1)
	}

	serveErr := app.Serve(ctx)
	if err := app.Close(context.Background()); err != nil {
		log.Warn("Shutdown was not clean", zap.Error(err))
	}
	if serveErr != nil {
		log.Error("Server failed", zap.Error(serveErr))
		os.Exit(1)
	}
}
