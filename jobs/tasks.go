package jobs

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries ledger work that must not wait behind maintenance.
	QueueCritical = "critical"

	// TaskPaymentPosting retries the ledger posting of a saved payment.
	TaskPaymentPosting = "ledger:post_payment"
	// TaskLedgerIntegrity scans the ledger for unbalanced vouchers.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// PaymentPostingPayload identifies the payment to post.
type PaymentPostingPayload struct {
	PaymentID int64 `json:"payment_id"`
}

// PaymentPostingTaskID keeps at most one pending retry per payment.
func PaymentPostingTaskID(paymentID int64) string {
	return "post-payment:" + strconv.FormatInt(paymentID, 10)
}

// NewPaymentPostingTask constructs the retry task for a payment.
func NewPaymentPostingTask(paymentID int64, maxRetry int) (*asynq.Task, error) {
	if paymentID <= 0 {
		return nil, fmt.Errorf("jobs: invalid payment id %d", paymentID)
	}
	data, err := json.Marshal(PaymentPostingPayload{PaymentID: paymentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentPosting, data,
		asynq.TaskID(PaymentPostingTaskID(paymentID)),
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(maxRetry),
	), nil
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil, asynq.Queue(QueueDefault))
}

// IdempotencyCleanupPayload configures key retention.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the purge task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}
