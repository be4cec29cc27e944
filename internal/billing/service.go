package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/numbering"
)

var (
	// ErrEndDateRequired is returned when neither the request nor the PO names an end date.
	ErrEndDateRequired = errors.New("billing: end date required, set valid_until on the PO or pass one")
	// ErrStartDateRequired is returned when neither the request nor the PO names a start date.
	ErrStartDateRequired = errors.New("billing: start date required")
	// ErrNothingToSchedule is returned when retained installments already cover the PO.
	ErrNothingToSchedule = errors.New("billing: nothing left to schedule")
	// ErrScheduleLocked blocks edits of installments that have moved past PENDING.
	ErrScheduleLocked = errors.New("billing: only pending installments can be changed")
	// ErrClientPOClosed blocks scheduling for cancelled, completed or expired POs.
	ErrClientPOClosed = errors.New("billing: client PO is closed")
)

// TxRepository exposes transactional schedule persistence.
type TxRepository interface {
	numbering.Counter
	InsertClientPO(ctx context.Context, po ClientPO) (ClientPO, error)
	GetClientPOForUpdate(ctx context.Context, id int64) (ClientPO, error)
	ListSchedules(ctx context.Context, poID int64) ([]BillingSchedule, error)
	DeletePendingSchedules(ctx context.Context, poID int64) error
	InsertSchedules(ctx context.Context, schedules []BillingSchedule) ([]BillingSchedule, error)
	GetScheduleForUpdate(ctx context.Context, id int64) (BillingSchedule, error)
	UpdateSchedule(ctx context.Context, schedule BillingSchedule) error
	DeleteSchedule(ctx context.Context, id int64) error
}

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// GenerateRequest configures schedule generation. Zero values fall back to the PO.
type GenerateRequest struct {
	Frequency Frequency
	StartDate time.Time
	EndDate   *time.Time
}

// ScheduleUpdate carries optional edits to a pending installment.
type ScheduleUpdate struct {
	DueDate     *time.Time
	Description *string
	Amount      *decimal.Decimal
	GSTAmount   *decimal.Decimal
	Notes       *string
}

// Service creates client POs and generates and edits their billing schedules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the billing service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// GenerateSchedules replaces a PO's pending installments. Installments already
// raised or invoiced are kept; the new ones cover what they do not.
func (s *Service) GenerateSchedules(ctx context.Context, poID int64, req GenerateRequest) ([]BillingSchedule, error) {
	var created []BillingSchedule
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetClientPOForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		switch po.Status {
		case ClientPOCancelled, ClientPOCompleted, ClientPOExpired:
			return fmt.Errorf("%w: %s", ErrClientPOClosed, po.Status)
		}
		freq := req.Frequency
		if freq == "" {
			freq = po.Frequency
		}
		if _, err := freq.Months(); err != nil {
			return err
		}
		start := req.StartDate
		if start.IsZero() && po.ValidFrom != nil {
			start = *po.ValidFrom
		}
		if start.IsZero() {
			return ErrStartDateRequired
		}
		var end time.Time
		switch {
		case req.EndDate != nil:
			end = *req.EndDate
		case po.ValidUntil != nil:
			end = *po.ValidUntil
		default:
			return ErrEndDateRequired
		}

		existing, err := tx.ListSchedules(ctx, poID)
		if err != nil {
			return err
		}
		keptAmount, keptGST := decimal.Zero, decimal.Zero
		lastInstallment := 0
		for _, sch := range existing {
			if sch.Status == SchedulePending {
				continue
			}
			if sch.InstallmentNumber > lastInstallment {
				lastInstallment = sch.InstallmentNumber
			}
			if sch.Status == ScheduleCancelled {
				continue
			}
			keptAmount = keptAmount.Add(sch.Amount)
			keptGST = keptGST.Add(sch.GSTAmount)
		}
		basis := Basis{
			ClientPOID:    po.ID,
			TaxableAmount: po.TaxableAmount.Sub(keptAmount),
			GSTAmount:     po.GSTAmount().Sub(keptGST),
		}
		if !basis.TaxableAmount.IsPositive() {
			return ErrNothingToSchedule
		}

		schedules, err := Generate(basis, freq, start, end, lastInstallment+1)
		if err != nil {
			return err
		}
		if err := tx.DeletePendingSchedules(ctx, poID); err != nil {
			return err
		}
		created, err = tx.InsertSchedules(ctx, schedules)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "billing schedules generated", slog.Int64("client_po_id", poID), slog.Int("installments", len(created)))
	return created, nil
}

// UpdateSchedule edits a pending installment.
func (s *Service) UpdateSchedule(ctx context.Context, id int64, upd ScheduleUpdate) (BillingSchedule, error) {
	var out BillingSchedule
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sch, err := tx.GetScheduleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !sch.Editable() {
			return ErrScheduleLocked
		}
		if upd.DueDate != nil {
			sch.DueDate = *upd.DueDate
		}
		if upd.Description != nil {
			sch.Description = *upd.Description
		}
		if upd.Amount != nil {
			sch.Amount = *upd.Amount
		}
		if upd.GSTAmount != nil {
			sch.GSTAmount = *upd.GSTAmount
		}
		if upd.Notes != nil {
			sch.Notes = *upd.Notes
		}
		sch.TotalAmount = sch.Amount.Add(sch.GSTAmount)
		if err := tx.UpdateSchedule(ctx, sch); err != nil {
			return err
		}
		out = sch
		return nil
	})
	return out, err
}

// DeleteSchedule removes a pending installment.
func (s *Service) DeleteSchedule(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sch, err := tx.GetScheduleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !sch.Editable() {
			return ErrScheduleLocked
		}
		return tx.DeleteSchedule(ctx, id)
	})
}
