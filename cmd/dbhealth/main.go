package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fineprocessing/fines-processor/internal/config"
	"github.com/fineprocessing/fines-processor/internal/fines"
)

// Small probe to catch DSN/network issues before deploying the worker.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	db, pool, err := fines.OpenDB(ctx, fines.DBConfig{DSN: cfg.DatabaseURL}, logger)
	if err != nil {
		logger.Error("open record store", "error", err)
		os.Exit(1)
	}
	defer fines.CloseDB(db, pool, logger)

	if err := fines.HealthCheck(ctx, pool, 3*time.Second); err != nil {
		logger.Error("record store health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("record store health OK")
}
