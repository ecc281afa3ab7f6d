package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fineprocessing/fines-processor/constants"
	"github.com/fineprocessing/fines-processor/internal/config"
	"github.com/fineprocessing/fines-processor/internal/fines"
	"github.com/fineprocessing/fines-processor/internal/gemini"
	"github.com/fineprocessing/fines-processor/internal/processor"
	"github.com/fineprocessing/fines-processor/internal/queue"
	"github.com/fineprocessing/fines-processor/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("parse redis url", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to redis")

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

	store := fines.NewSQLStore(db, logger)
	downloader := storage.NewClient(storage.Config{
		BaseURL:        cfg.SupabaseURL,
		ServiceRoleKey: cfg.SupabaseServiceRoleKey,
	}, logger)

	// One extraction client per process, injected everywhere it is needed.
	geminiClient := gemini.NewClient(gemini.Config{APIKey: cfg.GeminiAPIKey}, logger)
	extractor := gemini.NewExtractor(geminiClient, gemini.ExtractorConfig{Model: cfg.GeminiModel}, logger)

	proc := processor.New(store, downloader, extractor, cfg.FineDocumentsBucket, logger)

	q := queue.New(rdb, constants.QueueName, logger)
	worker := queue.NewWorker(q,
		func(ctx context.Context, job *queue.Job) error {
			_, err := proc.Process(ctx, job)
			return err
		},
		logger,
		queue.WithConcurrency(cfg.WorkerConcurrency),
		queue.WithMaxAttempts(cfg.WorkerMaxAttempts),
		queue.WithJobTimeout(cfg.WorkerJobTimeout),
		queue.WithCompletedListener(func(job *queue.Job) {
			logger.Info("job completed", "job_id", job.ID, "fine_id", job.Payload.RecordID)
		}),
		queue.WithFailedListener(func(job *queue.Job, err error) {
			logger.Error("job failed", "job_id", job.ID, "fine_id", job.Payload.RecordID, "error", err)
		}),
	)

	logger.Info("worker connected, consuming",
		"queue", constants.QueueName,
		"concurrency", cfg.WorkerConcurrency,
		"max_attempts", cfg.WorkerMaxAttempts,
	)
	worker.Run(ctx)
	logger.Info("stopped")
}
