package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/povault/povault/internal/app"
	"github.com/povault/povault/internal/platform/db"
	"github.com/povault/povault/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	// "worker trigger" enqueues an immediate integrity scan and exits.
	if len(os.Args) > 1 && os.Args[1] == "trigger" {
		if err := triggerIntegrityScan(ctx, cfg.RedisAddr, logger); err != nil {
			os.Exit(1)
		}
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	integrityJob := jobs.NewTotalsIntegrity(pool, logger)
	sweepJob := jobs.NewImportLedgerSweep(pool, logger, 0)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTotalsIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskImportLedgerSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 1 * * *", Task: jobs.NewTotalsIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 2 * * 0", Task: jobs.NewImportLedgerSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func triggerIntegrityScan(ctx context.Context, redisAddr string, logger *slog.Logger) error {
	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	info, err := client.EnqueueTotalsIntegrity(ctx)
	if err != nil {
		logger.Error("enqueue integrity scan", slog.Any("error", err))
		return err
	}
	logger.Info("integrity scan enqueued", slog.String("task_id", info.ID), slog.String("queue", info.Queue))
	return nil
}
