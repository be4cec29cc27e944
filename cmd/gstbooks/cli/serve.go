package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/api"
	"github.com/gstbooks/gstbooks/internal/app"
	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/fulfillment"
	"github.com/gstbooks/gstbooks/internal/invoicing"
	"github.com/gstbooks/gstbooks/internal/observability"
	"github.com/gstbooks/gstbooks/internal/platform/cache"
	"github.com/gstbooks/gstbooks/internal/shared"
	"github.com/gstbooks/gstbooks/jobs"
)

// logEnqueuer stands in for the queue when Redis is unavailable by design.
type logEnqueuer struct {
	logger *slog.Logger
}

func (e logEnqueuer) EnqueuePaymentPosting(ctx context.Context, paymentID int64) error {
	e.logger.WarnContext(ctx, "payment posting retry not queued in test mode", slog.Int64("payment_id", paymentID))
	return nil
}

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	if migrate {
		if err := migrateNow(ctx, rt); err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics()
	engineOpts := []ledger.Option{ledger.WithRecorder(observability.NewLedgerMetrics(metrics.Registerer()))}

	var (
		enqueuer invoicing.Enqueuer = logEnqueuer{logger: logger}
		jobsView app.RouteMounter
	)
	if !app.InTestMode() {
		redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer closeRedis(redisClient, logger)
		engineOpts = append(engineOpts, ledger.WithLocker(ledger.NewRedisLocker(redisClient, cfg.PostingLockTTL)))

		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		client := jobs.NewClient(redisOpts, cfg.PaymentPostingMaxRetry)
		defer client.Close()
		enqueuer = client

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobsView = jobs.NewHandler(inspector, logger)
	}

	engine := ledger.NewEngine(logger, engineOpts...)
	tracker := fulfillment.NewTracker(logger)
	invoicingService := invoicing.NewService(rt.store.Invoicing(), engine, tracker, enqueuer, logger)
	invoicingService.WithAudit(shared.NewAuditLogger(rt.pool))

	handler := api.NewHandler(api.Deps{
		Logger:      logger,
		Invoicing:   invoicingService,
		Billing:     billing.NewService(rt.store.Billing(), logger),
		Fulfillment: fulfillment.NewService(rt.store.Fulfillment(), tracker),
		Settings:    rt.store,
		Idempotency: shared.NewIdempotencyStore(rt.pool),
	})

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		API:     handler,
		DB:      rt.pool,
		Jobs:    jobsView,
		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func closeRedis(client *redis.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}
}
