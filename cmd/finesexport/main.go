package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/fineprocessing/fines-processor/internal/config"
	"github.com/fineprocessing/fines-processor/internal/export"
	"github.com/fineprocessing/fines-processor/internal/fines"
)

func main() {
	var (
		fromFlag = flag.String("from", "", "start date (YYYY-MM-DD, inclusive)")
		toFlag   = flag.String("to", "", "end date (YYYY-MM-DD, inclusive)")
		outFlag  = flag.String("out", "fines.xlsx", "output file path")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	from, err := parseDateFlag(*fromFlag)
	if err != nil {
		logger.Error("invalid -from", "error", err)
		os.Exit(1)
	}
	to, err := parseDateFlag(*toFlag)
	if err != nil {
		logger.Error("invalid -to", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, pool, err := fines.OpenDB(ctx, fines.DBConfig{DSN: cfg.DatabaseURL}, logger)
	if err != nil {
		logger.Error("open record store", "error", err)
		os.Exit(1)
	}
	defer fines.CloseDB(db, pool, logger)

	svc := export.NewService(fines.NewSQLStore(db, logger), logger)
	data, err := svc.ExportFinesXLSX(ctx, from, to)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outFlag, data, 0o644); err != nil {
		logger.Error("write output", "path", *outFlag, "error", err)
		os.Exit(1)
	}
	logger.Info("export written", "path", *outFlag, "bytes", len(data))
}

func parseDateFlag(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
