package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	jobmetrics "github.com/gstbooks/gstbooks/internal/jobs"
)

// LedgerIntegrityJob reports vouchers whose debits and credits differ.
type LedgerIntegrityJob struct {
	Reader  ledger.IntegrityReader
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLedgerIntegrityJob initialises the integrity scan handler.
func NewLedgerIntegrityJob(reader ledger.IntegrityReader, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Reader:  reader,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs one scan. Imbalances are logged and published, not returned as errors.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) error {
	_, err := j.Run(ctx)
	return err
}

// Run scans the ledger and returns the imbalances found.
func (j *LedgerIntegrityJob) Run(ctx context.Context) (_ []ledger.VoucherImbalance, err error) {
	if j == nil || j.Reader == nil {
		return nil, errors.New("ledger integrity: handler not configured")
	}
	start := j.now()
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() { err = tracker.End(err) }()

	logger := j.logger()
	imbalances, err := j.Reader.UnbalancedVouchers(ctx)
	if err != nil {
		logger.Error("ledger integrity scan failed", slog.Any("error", err))
		return nil, err
	}
	for _, v := range imbalances {
		logger.Warn("unbalanced voucher",
			slog.String("voucher_number", v.VoucherNumber),
			slog.String("debit", v.Debit.StringFixed(2)),
			slog.String("credit", v.Credit.StringFixed(2)),
		)
	}
	j.Metrics.SetUnbalancedVouchers(len(imbalances))
	logger.Info("ledger integrity scan completed",
		slog.Int("unbalanced", len(imbalances)),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return imbalances, nil
}

func (j *LedgerIntegrityJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}
