package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-fin/meridian-fin/internal/accounting/accounts"
	"github.com/meridian-fin/meridian-fin/internal/accounting/journals"
	"github.com/meridian-fin/meridian-fin/internal/app"
	"github.com/meridian-fin/meridian-fin/internal/observability"
	"github.com/meridian-fin/meridian-fin/internal/platform/db"
	"github.com/meridian-fin/meridian-fin/internal/revenue/contracts"
	"github.com/meridian-fin/meridian-fin/internal/revenue/recognition"
	"github.com/meridian-fin/meridian-fin/internal/revenue/schedules"
	"github.com/meridian-fin/meridian-fin/internal/revenue/waterfall"
	"github.com/meridian-fin/meridian-fin/internal/shared"
	"github.com/meridian-fin/meridian-fin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	accountsService := accounts.NewService(accounts.NewRepository(dbpool))
	accountsHandler := accounts.NewHandler(logger, accountsService)

	journalsService := journals.NewService(journals.NewRepository(dbpool), auditLogger)
	journalsHandler := journals.NewHandler(logger, journalsService)

	schedulesService := schedules.NewService(schedules.NewRepository(dbpool))
	schedulesHandler := schedules.NewHandler(logger, schedulesService)

	contractsService := contracts.NewService(contracts.NewRepository(dbpool), schedulesService, auditLogger)
	contractsHandler := contracts.NewHandler(logger, contractsService)

	recognitionService := recognition.NewService(logger, recognition.NewRepository(dbpool), auditLogger, metrics)
	recognitionHandler := recognition.NewHandler(logger, recognitionService)

	waterfallService := waterfall.NewService(waterfall.NewRepository(dbpool))
	waterfallHandler := waterfall.NewHandler(logger, waterfallService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AccountsHandler:    accountsHandler,
		JournalsHandler:    journalsHandler,
		ContractsHandler:   contractsHandler,
		SchedulesHandler:   schedulesHandler,
		RecognitionHandler: recognitionHandler,
		WaterfallHandler:   waterfallHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
