package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/fiscal"
	"github.com/gstbooks/gstbooks/internal/numbering"
	"github.com/gstbooks/gstbooks/internal/settings"
)

// PaymentOutcome is the committed payment and, when posting succeeded, its voucher.
type PaymentOutcome struct {
	Payment documents.Payment
	Posting *ledger.Result
}

// CreatePayment commits a payment and applies it to its invoice, then posts it
// in a second transaction. A posting failure does not undo the payment: the
// outcome is returned together with a *PaymentPostingDeferredError and a retry
// is enqueued.
func (s *Service) CreatePayment(ctx context.Context, st settings.CompanySettings, in CreatePaymentInput) (PaymentOutcome, error) {
	if err := s.check(in); err != nil {
		return PaymentOutcome{}, err
	}
	if err := in.check(); err != nil {
		return PaymentOutcome{}, err
	}
	p := documents.Payment{
		Type:            in.Type,
		Mode:            in.Mode,
		Status:          documents.PaymentCompleted,
		Date:            in.Date,
		ClientID:        in.ClientID,
		VendorID:        in.VendorID,
		BranchID:        in.BranchID,
		InvoiceID:       in.InvoiceID,
		GrossAmount:     in.GrossAmount,
		TDSAmount:       in.TDSAmount,
		TCSAmount:       in.TCSAmount,
		NetAmount:       documents.NetAmount(in.GrossAmount, in.TDSAmount, in.TCSAmount),
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		fy := fiscal.FinancialYear(p.Date, st.FYStartMonth())
		number, err := numbering.NewService(tx).Next(ctx, p.Type.NumberPrefix(), fy)
		if err != nil {
			return err
		}
		p.Number = number
		if p.InvoiceID != nil {
			inv, err := tx.GetInvoiceForUpdate(ctx, *p.InvoiceID)
			if err != nil {
				return err
			}
			if inv.Status == documents.InvoiceCancelled {
				return fmt.Errorf("%w: invoice %s is cancelled", ErrInvalidTransition, inv.Number)
			}
			if inv.Type.CustomerFacing() != (p.Type == documents.PaymentReceipt) {
				return ErrPartyMismatch
			}
			inv.ApplyPayment(p.NetAmount)
			if err := tx.UpdateInvoiceState(ctx, inv); err != nil {
				return err
			}
		}
		return tx.InsertPayment(ctx, &p)
	})
	if err != nil {
		return PaymentOutcome{}, err
	}

	outcome := PaymentOutcome{Payment: p}
	res, err := s.postPayment(ctx, st, p.ID)
	if err != nil {
		deferred := &PaymentPostingDeferredError{PaymentID: p.ID, Number: p.Number, Err: err}
		if s.enqueuer != nil {
			if qerr := s.enqueuer.EnqueuePaymentPosting(ctx, p.ID); qerr != nil {
				s.logger.ErrorContext(ctx, "enqueue payment posting retry", slog.Int64("payment_id", p.ID), slog.Any("error", qerr))
			} else {
				deferred.Enqueued = true
			}
		}
		s.logger.ErrorContext(ctx, "payment ledger posting deferred",
			slog.Int64("payment_id", p.ID),
			slog.String("number", p.Number),
			slog.Bool("retry_enqueued", deferred.Enqueued),
			slog.Any("error", err),
		)
		return outcome, deferred
	}
	outcome.Payment.IsPosted = true
	outcome.Posting = &res
	return outcome, nil
}

func (s *Service) postPayment(ctx context.Context, st settings.CompanySettings, id int64) (ledger.Result, error) {
	var res ledger.Result
	err := s.engine.WithDocumentLock(ctx, ledger.ReferencePayment, id, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.GetPaymentForUpdate(ctx, id)
			if err != nil {
				return err
			}
			res, err = s.engine.PostPayment(ctx, tx, &p, st)
			return err
		})
	})
	return res, err
}

// PostPayment posts a payment explicitly.
func (s *Service) PostPayment(ctx context.Context, st settings.CompanySettings, id int64) (ledger.Result, error) {
	return s.postPayment(ctx, st, id)
}

// RetryPaymentPosting posts a payment whose earlier posting failed. Payments
// already posted or cancelled are left alone.
func (s *Service) RetryPaymentPosting(ctx context.Context, st settings.CompanySettings, id int64) error {
	_, err := s.postPayment(ctx, st, id)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "deferred payment posted", slog.Int64("payment_id", id))
		return nil
	case errors.Is(err, ledger.ErrAlreadyPosted), errors.Is(err, ledger.ErrDocumentCancelled):
		return nil
	default:
		return err
	}
}

// ReversePayment reverses a payment's posting without changing its status.
func (s *Service) ReversePayment(ctx context.Context, st settings.CompanySettings, id int64) (ledger.Result, error) {
	var res ledger.Result
	err := s.engine.WithDocumentLock(ctx, ledger.ReferencePayment, id, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.GetPaymentForUpdate(ctx, id)
			if err != nil {
				return err
			}
			res, err = s.engine.ReversePaymentPosting(ctx, tx, &p, st)
			return err
		})
	})
	if err != nil {
		return ledger.Result{}, err
	}
	s.audit(ctx, "payment.reverse", "payment", id, map[string]any{"voucher": res.VoucherNumber})
	return res, nil
}

// CancelPayment reverses the posting, takes the payment off its invoice and
// marks it cancelled. A reversal failure aborts the cancellation.
func (s *Service) CancelPayment(ctx context.Context, st settings.CompanySettings, id int64) (documents.Payment, error) {
	var out documents.Payment
	err := s.engine.WithDocumentLock(ctx, ledger.ReferencePayment, id, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.GetPaymentForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if p.Status == documents.PaymentCancelled {
				return fmt.Errorf("%w: payment already cancelled", ErrInvalidTransition)
			}
			if p.IsPosted {
				if _, err := s.engine.ReversePaymentPosting(ctx, tx, &p, st); err != nil {
					return err
				}
			}
			if p.InvoiceID != nil {
				inv, err := tx.GetInvoiceForUpdate(ctx, *p.InvoiceID)
				if err != nil {
					return err
				}
				inv.RevertPayment(p.NetAmount)
				if err := tx.UpdateInvoiceState(ctx, inv); err != nil {
					return err
				}
			}
			if err := tx.UpdatePaymentStatus(ctx, p.ID, documents.PaymentCancelled); err != nil {
				return err
			}
			p.Status = documents.PaymentCancelled
			out = p
			return nil
		})
	})
	if err != nil {
		return documents.Payment{}, err
	}
	s.audit(ctx, "payment.cancel", "payment", out.ID, map[string]any{"number": out.Number})
	return out, nil
}
