package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	jobmetrics "github.com/gstbooks/gstbooks/internal/jobs"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPoster struct {
	calls []int64
	err   error
}

func (s *stubPoster) RetryPaymentPosting(_ context.Context, _ settings.CompanySettings, id int64) error {
	s.calls = append(s.calls, id)
	return s.err
}

type stubSettings struct {
	err error
}

func (s stubSettings) CompanySettings(context.Context) (settings.CompanySettings, error) {
	return settings.Defaults(), s.err
}

func TestPaymentPostingTask(t *testing.T) {
	task, err := NewPaymentPostingTask(42, 7)
	require.NoError(t, err)
	assert.Equal(t, TaskPaymentPosting, task.Type())
	assert.JSONEq(t, `{"payment_id":42}`, string(task.Payload()))
	assert.Equal(t, "post-payment:42", PaymentPostingTaskID(42))

	_, err = NewPaymentPostingTask(0, 7)
	assert.Error(t, err)
}

func TestPaymentPostingJobRetries(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	poster := &stubPoster{}
	job := NewPaymentPostingJob(poster, stubSettings{}, discardLogger(), metrics)

	task, err := NewPaymentPostingTask(9, 3)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []int64{9}, poster.calls)

	poster.err = errors.New("database unavailable")
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	series, err := testutil.GatherAndCount(reg, "gstbooks_jobs_total", "gstbooks_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 3, series)
}

func TestPaymentPostingJobSkipsRetry(t *testing.T) {
	poster := &stubPoster{}
	job := NewPaymentPostingJob(poster, stubSettings{}, discardLogger(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskPaymentPosting, []byte(`{`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, poster.calls)

	err = job.Handle(context.Background(), asynq.NewTask(TaskPaymentPosting, []byte(`{"payment_id":0}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	poster.err = shared.NotFound("payment", 5)
	task, err := NewPaymentPostingTask(5, 3)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPaymentPostingJobSettingsFailure(t *testing.T) {
	poster := &stubPoster{}
	job := NewPaymentPostingJob(poster, stubSettings{err: errors.New("boom")}, discardLogger(), nil)
	task, err := NewPaymentPostingTask(1, 3)
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
	assert.Empty(t, poster.calls)
}

type stubIntegrity struct {
	rows []ledger.VoucherImbalance
	err  error
}

func (s stubIntegrity) UnbalancedVouchers(context.Context) ([]ledger.VoucherImbalance, error) {
	return s.rows, s.err
}

func TestLedgerIntegrityJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	reader := stubIntegrity{rows: []ledger.VoucherImbalance{
		{VoucherNumber: "JV-INV/2024-25/0003", Debit: decimal.RequireFromString("100"), Credit: decimal.RequireFromString("99.99")},
	}}
	job := NewLedgerIntegrityJob(reader, discardLogger(), metrics)

	found, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "JV-INV/2024-25/0003", found[0].VoucherNumber)

	families, err := reg.Gather()
	require.NoError(t, err)
	var gauge float64
	for _, mf := range families {
		if mf.GetName() == "gstbooks_ledger_unbalanced_vouchers" {
			gauge = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, gauge)

	failing := NewLedgerIntegrityJob(stubIntegrity{err: errors.New("timeout")}, discardLogger(), metrics)
	assert.Error(t, failing.Handle(context.Background(), NewLedgerIntegrityTask()))
}

type stubPurger struct {
	retention time.Duration
}

func (s *stubPurger) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.retention = olderThan
	return 3, nil
}

func TestIdempotencyCleanupJob(t *testing.T) {
	purger := &stubPurger{}
	job := &IdempotencyCleanupJob{Purger: purger, Retention: 72 * time.Hour, Logger: discardLogger()}

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, 72*time.Hour, purger.retention)

	task, err := NewIdempotencyCleanupTask(24)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, purger.retention)

	err = job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte(`nope`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubInspector struct {
	info map[string]*asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.info[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHandlerHealth(t *testing.T) {
	inspector := stubInspector{info: map[string]*asynq.QueueInfo{
		QueueCritical: {Queue: QueueCritical, Pending: 2, Retry: 1},
	}}
	r := chi.NewRouter()
	NewHandler(inspector, discardLogger()).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body []queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, queueHealth{Queue: QueueCritical, Pending: 2, Retry: 1, Available: true}, body[0])
	assert.Equal(t, queueHealth{Queue: QueueDefault, Available: true}, body[1])

	r = chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, discardLogger()).MountRoutes(r)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
