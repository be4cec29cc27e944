// Package invoicing runs the document lifecycle: numbering, tax computation,
// ledger posting on create or send, payments, cancellation and conversion of
// proformas and billing schedules into invoices.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/fulfillment"
	"github.com/gstbooks/gstbooks/internal/shared"
)

var (
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invoicing: invalid input")
	// ErrInvalidTransition blocks status changes the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invoicing: invalid status transition")
	// ErrScheduleNotPending blocks raising documents from a consumed installment.
	ErrScheduleNotPending = errors.New("invoicing: billing schedule is not pending")
	// ErrInvoiceHasPayments blocks cancelling an invoice that has money applied.
	ErrInvoiceHasPayments = errors.New("invoicing: invoice has payments applied")
	// ErrPartyMismatch blocks applying a receipt to a purchase invoice and vice versa.
	ErrPartyMismatch = errors.New("invoicing: payment does not match invoice party")
	// ErrPaymentPostingDeferred matches PaymentPostingDeferredError.
	ErrPaymentPostingDeferred = errors.New("invoicing: payment saved, ledger posting deferred")
)

// PaymentPostingDeferredError reports a payment that was committed but could
// not be posted. The payment stays unposted until a retry succeeds.
type PaymentPostingDeferredError struct {
	PaymentID int64
	Number    string
	Enqueued  bool
	Err       error
}

func (e *PaymentPostingDeferredError) Error() string {
	return fmt.Sprintf("invoicing: payment %s saved but not posted (retry queued: %t): %v", e.Number, e.Enqueued, e.Err)
}

// Unwrap exposes the posting failure.
func (e *PaymentPostingDeferredError) Unwrap() error { return e.Err }

// Is matches ErrPaymentPostingDeferred.
func (e *PaymentPostingDeferredError) Is(target error) bool { return target == ErrPaymentPostingDeferred }

// TxRepository is the transactional persistence for document lifecycles. It
// includes the ledger and fulfillment ports so posting and recomputes commit
// with the document change.
type TxRepository interface {
	ledger.Tx
	fulfillment.Tx
	InsertInvoice(ctx context.Context, inv *documents.Invoice) error
	GetInvoiceForUpdate(ctx context.Context, id int64) (documents.Invoice, error)
	UpdateInvoiceState(ctx context.Context, inv documents.Invoice) error
	InsertPayment(ctx context.Context, p *documents.Payment) error
	GetPaymentForUpdate(ctx context.Context, id int64) (documents.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status documents.PaymentStatus) error
	InsertProforma(ctx context.Context, pi *documents.ProformaInvoice) error
	GetProformaForUpdate(ctx context.Context, id int64) (documents.ProformaInvoice, error)
	UpdateProformaState(ctx context.Context, pi documents.ProformaInvoice) error
	GetScheduleForUpdate(ctx context.Context, id int64) (billing.BillingSchedule, error)
	UpdateSchedule(ctx context.Context, schedule billing.BillingSchedule) error
}

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Enqueuer schedules a durable retry of payment posting.
type Enqueuer interface {
	EnqueuePaymentPosting(ctx context.Context, paymentID int64) error
}

// AuditPort records document lifecycle events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates document lifecycles.
type Service struct {
	repo     RepositoryPort
	engine   *ledger.Engine
	tracker  *fulfillment.Tracker
	enqueuer Enqueuer
	auditor  AuditPort
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs the invoicing service. enqueuer may be nil, in which
// case failed payment postings are only reported.
func NewService(repo RepositoryPort, engine *ledger.Engine, tracker *fulfillment.Tracker, enqueuer Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = ledger.NewEngine(logger)
	}
	if tracker == nil {
		tracker = fulfillment.NewTracker(logger)
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		tracker:  tracker,
		enqueuer: enqueuer,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithAudit attaches an audit trail for cancellations, reversals and conversions.
func (s *Service) WithAudit(a AuditPort) {
	s.auditor = a
}

func (s *Service) audit(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
