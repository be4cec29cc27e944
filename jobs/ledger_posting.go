package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gstbooks/gstbooks/internal/jobs"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/shared"
)

// PaymentPoster retries the posting of a saved payment. Already-posted
// payments must return nil.
type PaymentPoster interface {
	RetryPaymentPosting(ctx context.Context, st settings.CompanySettings, paymentID int64) error
}

// SettingsProvider loads the company settings.
type SettingsProvider interface {
	CompanySettings(ctx context.Context) (settings.CompanySettings, error)
}

// PaymentPostingJob handles TaskPaymentPosting.
type PaymentPostingJob struct {
	Poster   PaymentPoster
	Settings SettingsProvider
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPaymentPostingJob wires the retry handler.
func NewPaymentPostingJob(poster PaymentPoster, provider SettingsProvider, logger *slog.Logger, metrics *jobmetrics.Metrics) *PaymentPostingJob {
	return &PaymentPostingJob{Poster: poster, Settings: provider, Logger: logger, Metrics: metrics}
}

// Handle posts the payment. Malformed payloads and unknown payments are not retried.
func (j *PaymentPostingJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Poster == nil || j.Settings == nil {
		return errors.New("payment posting: handler not configured")
	}
	var payload PaymentPostingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.PaymentID <= 0 {
		return fmt.Errorf("payment posting: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskPaymentPosting)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.Int64("payment_id", payload.PaymentID))
	st, err := j.Settings.CompanySettings(ctx)
	if err != nil {
		logger.Error("load company settings", slog.Any("error", err))
		return err
	}
	if err := j.Poster.RetryPaymentPosting(ctx, st, payload.PaymentID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			logger.Warn("payment vanished before posting", slog.Any("error", err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Error("payment posting retry failed", slog.Any("error", err))
		return err
	}
	logger.Info("payment posted by retry")
	return nil
}

func (j *PaymentPostingJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
