package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-fin/meridian-fin/internal/app"
	"github.com/meridian-fin/meridian-fin/internal/platform/cache"
	"github.com/meridian-fin/meridian-fin/internal/platform/db"
	"github.com/meridian-fin/meridian-fin/internal/revenue/recognition"
	"github.com/meridian-fin/meridian-fin/internal/shared"
	"github.com/meridian-fin/meridian-fin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The worker runs without the lock when redis is down; overlapping runs
	// are still safe because posting claims lines transactionally.
	var lock *shared.RunLock
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, running unlocked", slog.Any("error", err))
	} else {
		lock = shared.NewRunLock(redisClient, cfg.RecognitionLock)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(pool)
	recognitionService := recognition.NewService(logger, recognition.NewRepository(pool), auditLogger, nil)
	recognitionJob := jobs.NewRecognitionRunJob(logger, recognitionService, lock)
	integrityJob := jobs.NewLedgerIntegrityJob(logger, pool)

	recognitionTask, err := jobs.NewRecognitionRunTask(jobs.RecognitionRunPayload{})
	if err != nil {
		logger.Error("build recognition task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.RecognitionCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.RecognitionCron,
			Task:    recognitionTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}
	if cfg.IntegrityCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec: cfg.IntegrityCron,
			Task: jobs.NewLedgerIntegrityTask(),
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeRecognitionRun, Handler: recognitionJob.Handle},
			{Type: jobs.TaskTypeLedgerIntegrity, Handler: func(ctx context.Context, _ *asynq.Task) error {
				return integrityJob.Run(ctx)
			}},
		},
		Cron: cron,
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
