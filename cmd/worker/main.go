package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/app"
	"github.com/gstbooks/gstbooks/internal/fulfillment"
	"github.com/gstbooks/gstbooks/internal/invoicing"
	jobmetrics "github.com/gstbooks/gstbooks/internal/jobs"
	"github.com/gstbooks/gstbooks/internal/observability"
	"github.com/gstbooks/gstbooks/internal/platform/cache"
	"github.com/gstbooks/gstbooks/internal/platform/db"
	"github.com/gstbooks/gstbooks/internal/shared"
	"github.com/gstbooks/gstbooks/internal/store"
	"github.com/gstbooks/gstbooks/jobs"
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

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	client := jobs.NewClient(redisOpts, cfg.PaymentPostingMaxRetry)
	defer client.Close()

	metrics := jobmetrics.NewMetrics(nil)
	st := store.New(pool)
	engine := ledger.NewEngine(logger,
		ledger.WithRecorder(observability.NewLedgerMetrics(nil)),
		ledger.WithLocker(ledger.NewRedisLocker(redisClient, cfg.PostingLockTTL)),
	)
	invoicingService := invoicing.NewService(st.Invoicing(), engine, fulfillment.NewTracker(logger), client, logger)
	invoicingService.WithAudit(shared.NewAuditLogger(pool))

	postingJob := jobs.NewPaymentPostingJob(invoicingService, st, logger, metrics)
	integrityJob := jobs.NewLedgerIntegrityJob(st, logger, metrics)
	cleanupJob := &jobs.IdempotencyCleanupJob{
		Purger:    shared.NewIdempotencyStore(pool),
		Retention: cfg.IdempotencyRetention,
		Logger:    logger,
		Metrics:   metrics,
	}

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(0)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPaymentPosting, Handler: postingJob.Handle},
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegrityCron, Task: jobs.NewLedgerIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
