package invoicing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/fiscal"
	"github.com/gstbooks/gstbooks/internal/numbering"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/tax"
)

// CreateInvoice numbers, totals and stores a new draft invoice. With
// ON_CREATE posting the voucher is written in the same transaction.
func (s *Service) CreateInvoice(ctx context.Context, st settings.CompanySettings, in CreateInvoiceInput) (documents.Invoice, error) {
	if err := s.check(in); err != nil {
		return documents.Invoice{}, err
	}
	if err := in.check(); err != nil {
		return documents.Invoice{}, err
	}
	inv := documents.Invoice{
		Type:          in.Type,
		Status:        documents.InvoiceDraft,
		Date:          in.Date,
		DueDate:       in.DueDate,
		ClientID:      in.ClientID,
		VendorID:      in.VendorID,
		BranchID:      in.BranchID,
		ClientPOID:    in.ClientPOID,
		IsIGST:        in.IsIGST,
		PlaceOfSupply: in.PlaceOfSupply,
		Withholding:   in.Withholding,
		AmountPaid:    decimal.Zero,
		Notes:         in.Notes,
		Items:         lineItems(in.Items),
	}
	inv.DiscountPercent = in.DiscountPercent
	inv.DiscountAmount = in.DiscountAmount
	inv.ApplyBreakdown(tax.ComputeDocument(inv.TaxInput()))

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.insertInvoice(ctx, tx, st, &inv)
	})
	if err != nil {
		return documents.Invoice{}, err
	}
	return inv, nil
}

func (s *Service) insertInvoice(ctx context.Context, tx TxRepository, st settings.CompanySettings, inv *documents.Invoice) error {
	fy := fiscal.FinancialYear(inv.Date, st.FYStartMonth())
	number, err := numbering.NewService(tx).Next(ctx, inv.Type.NumberPrefix(), fy)
	if err != nil {
		return err
	}
	inv.Number = number
	if err := tx.InsertInvoice(ctx, inv); err != nil {
		return err
	}
	if st.PostingTrigger() == settings.PostOnCreate {
		if _, err := s.engine.PostInvoice(ctx, tx, inv, st); err != nil {
			return err
		}
	}
	if inv.ClientPOID != nil {
		if _, err := s.tracker.Recompute(ctx, tx, *inv.ClientPOID); err != nil {
			return err
		}
	}
	s.logger.InfoContext(ctx, "invoice created",
		slog.String("number", inv.Number),
		slog.String("type", string(inv.Type)),
		slog.String("total", inv.TotalAmount.StringFixed(2)),
		slog.Bool("posted", inv.IsPosted),
	)
	return nil
}

// SendInvoice moves a draft to SENT. With ON_SENT posting the voucher is
// written in the same transaction.
func (s *Service) SendInvoice(ctx context.Context, st settings.CompanySettings, id int64) (documents.Invoice, error) {
	var out documents.Invoice
	err := s.engine.WithDocumentLock(ctx, ledger.ReferenceInvoice, id, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			inv, err := tx.GetInvoiceForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if inv.Status != documents.InvoiceDraft {
				return fmt.Errorf("%w: cannot send %s invoice", ErrInvalidTransition, inv.Status)
			}
			inv.Status = documents.InvoiceSent
			if err := tx.UpdateInvoiceState(ctx, inv); err != nil {
				return err
			}
			if st.PostingTrigger() == settings.PostOnSent && !inv.IsPosted {
				if _, err := s.engine.PostInvoice(ctx, tx, &inv, st); err != nil {
					return err
				}
			}
			out = inv
			return nil
		})
	})
	return out, err
}

// PostInvoice posts an invoice explicitly.
func (s *Service) PostInvoice(ctx context.Context, st settings.CompanySettings, id int64) (ledger.Result, error) {
	var res ledger.Result
	err := s.engine.WithDocumentLock(ctx, ledger.ReferenceInvoice, id, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			inv, err := tx.GetInvoiceForUpdate(ctx, id)
			if err != nil {
				return err
			}
			res, err = s.engine.PostInvoice(ctx, tx, &inv, st)
			return err
		})
	})
	return res, err
}

// ReverseInvoice reverses an invoice's posting without changing its status.
func (s *Service) ReverseInvoice(ctx context.Context, st settings.CompanySettings, id int64) (ledger.Result, error) {
	var res ledger.Result
	err := s.engine.WithDocumentLock(ctx, ledger.ReferenceInvoice, id, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			inv, err := tx.GetInvoiceForUpdate(ctx, id)
			if err != nil {
				return err
			}
			res, err = s.engine.ReverseInvoicePosting(ctx, tx, &inv, st)
			return err
		})
	})
	if err != nil {
		return ledger.Result{}, err
	}
	s.audit(ctx, "invoice.reverse", "invoice", id, map[string]any{"voucher": res.VoucherNumber})
	return res, nil
}

// CancelInvoice reverses any posting, cancels the invoice, releases its
// billing installment and recomputes the linked PO. An invoice converted from
// a proforma hands the installment back to that proforma, which is reopened as
// SENT so it can be converted again.
func (s *Service) CancelInvoice(ctx context.Context, st settings.CompanySettings, id int64) (documents.Invoice, error) {
	var out documents.Invoice
	err := s.engine.WithDocumentLock(ctx, ledger.ReferenceInvoice, id, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			inv, err := tx.GetInvoiceForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if inv.Status == documents.InvoiceCancelled {
				return fmt.Errorf("%w: invoice already cancelled", ErrInvalidTransition)
			}
			if inv.AmountPaid.IsPositive() {
				return ErrInvoiceHasPayments
			}
			if inv.IsPosted {
				if _, err := s.engine.ReverseInvoicePosting(ctx, tx, &inv, st); err != nil {
					return err
				}
			}
			inv.Status = documents.InvoiceCancelled
			if err := tx.UpdateInvoiceState(ctx, inv); err != nil {
				return err
			}
			reopened, err := reopenProforma(ctx, tx, inv)
			if err != nil {
				return err
			}
			if inv.BillingScheduleID != nil {
				sch, err := tx.GetScheduleForUpdate(ctx, *inv.BillingScheduleID)
				if err != nil {
					return err
				}
				if sch.InvoiceID != nil && *sch.InvoiceID == inv.ID {
					sch.InvoiceID = nil
					sch.Status = billing.SchedulePending
					if reopened && sch.ProformaID != nil && *sch.ProformaID == *inv.ProformaID {
						sch.Status = billing.SchedulePIRaised
					} else {
						sch.ProformaID = nil
					}
					if err := tx.UpdateSchedule(ctx, sch); err != nil {
						return err
					}
				}
			}
			if inv.ClientPOID != nil {
				if _, err := s.tracker.Recompute(ctx, tx, *inv.ClientPOID); err != nil {
					return err
				}
			}
			out = inv
			return nil
		})
	})
	if err != nil {
		return documents.Invoice{}, err
	}
	s.logger.InfoContext(ctx, "invoice cancelled", slog.String("number", out.Number))
	s.audit(ctx, "invoice.cancel", "invoice", out.ID, map[string]any{"number": out.Number})
	return out, nil
}

func reopenProforma(ctx context.Context, tx TxRepository, inv documents.Invoice) (bool, error) {
	if inv.ProformaID == nil {
		return false, nil
	}
	pi, err := tx.GetProformaForUpdate(ctx, *inv.ProformaID)
	if err != nil {
		return false, err
	}
	if pi.Status != documents.ProformaGenerated || pi.InvoiceID == nil || *pi.InvoiceID != inv.ID {
		return false, nil
	}
	pi.Status = documents.ProformaSent
	pi.InvoiceID = nil
	return true, tx.UpdateProformaState(ctx, pi)
}
