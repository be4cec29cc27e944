package invoicing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/fiscal"
	"github.com/gstbooks/gstbooks/internal/numbering"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/tax"
)

// CreateProforma numbers, totals and stores a draft proforma. Proformas never post.
func (s *Service) CreateProforma(ctx context.Context, st settings.CompanySettings, in CreateProformaInput) (documents.ProformaInvoice, error) {
	if err := s.check(in); err != nil {
		return documents.ProformaInvoice{}, err
	}
	if err := in.check(); err != nil {
		return documents.ProformaInvoice{}, err
	}
	pi := documents.ProformaInvoice{
		Status:        documents.ProformaDraft,
		Date:          in.Date,
		DueDate:       in.DueDate,
		ValidUntil:    in.ValidUntil,
		ClientID:      in.ClientID,
		BranchID:      in.BranchID,
		ClientPOID:    in.ClientPOID,
		IsIGST:        in.IsIGST,
		PlaceOfSupply: in.PlaceOfSupply,
		Withholding:   in.Withholding,
		Notes:         in.Notes,
		Items:         lineItems(in.Items),
	}
	pi.DiscountPercent = in.DiscountPercent
	pi.DiscountAmount = in.DiscountAmount
	pi.ApplyBreakdown(tax.ComputeDocument(pi.TaxInput()))

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.insertProforma(ctx, tx, st, &pi)
	})
	if err != nil {
		return documents.ProformaInvoice{}, err
	}
	return pi, nil
}

func (s *Service) insertProforma(ctx context.Context, tx TxRepository, st settings.CompanySettings, pi *documents.ProformaInvoice) error {
	fy := fiscal.FinancialYear(pi.Date, st.FYStartMonth())
	number, err := numbering.NewService(tx).Next(ctx, numbering.PrefixProforma, fy)
	if err != nil {
		return err
	}
	pi.Number = number
	if err := tx.InsertProforma(ctx, pi); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "proforma created",
		slog.String("number", pi.Number),
		slog.String("total", pi.TotalAmount.StringFixed(2)),
	)
	return nil
}

// ConvertProforma raises a sales invoice from a draft or sent proforma. The
// proforma becomes GENERATED and a linked installment becomes INVOICED.
// A zero date uses today.
func (s *Service) ConvertProforma(ctx context.Context, st settings.CompanySettings, id int64, date time.Time) (documents.Invoice, error) {
	if date.IsZero() {
		date = s.now()
	}
	var out documents.Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pi, err := tx.GetProformaForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !pi.Convertible() {
			return fmt.Errorf("%w: proforma %s is %s", ErrInvalidTransition, pi.Number, pi.Status)
		}
		clientID := pi.ClientID
		inv := documents.Invoice{
			Type:              documents.InvoiceSales,
			Status:            documents.InvoiceDraft,
			Date:              date,
			DueDate:           pi.DueDate,
			ClientID:          &clientID,
			BranchID:          pi.BranchID,
			ClientPOID:        pi.ClientPOID,
			BillingScheduleID: pi.BillingScheduleID,
			ProformaID:        &pi.ID,
			IsIGST:            pi.IsIGST,
			PlaceOfSupply:     pi.PlaceOfSupply,
			Withholding:       pi.Withholding,
			AmountPaid:        decimal.Zero,
			Notes:             pi.Notes,
			Items:             copyItems(pi.Items),
		}
		if pi.BillingScheduleID != nil {
			// Installment documents carry their amounts as raised.
			inv.Totals = pi.Totals
			inv.AmountDue = inv.Totals.AmountDue(inv.AmountPaid)
		} else {
			inv.DiscountPercent = pi.DiscountPercent
			inv.DiscountAmount = pi.DiscountAmount
			inv.ApplyBreakdown(tax.ComputeDocument(inv.TaxInput()))
		}
		if err := s.insertInvoice(ctx, tx, st, &inv); err != nil {
			return err
		}

		pi.Status = documents.ProformaGenerated
		pi.InvoiceID = &inv.ID
		if err := tx.UpdateProformaState(ctx, pi); err != nil {
			return err
		}
		if pi.BillingScheduleID != nil {
			sch, err := tx.GetScheduleForUpdate(ctx, *pi.BillingScheduleID)
			if err != nil {
				return err
			}
			sch.Status = billing.ScheduleInvoiced
			sch.InvoiceID = &inv.ID
			if err := tx.UpdateSchedule(ctx, sch); err != nil {
				return err
			}
		}
		out = inv
		return nil
	})
	if err != nil {
		return documents.Invoice{}, err
	}
	s.audit(ctx, "proforma.convert", "proforma_invoice", id, map[string]any{"invoice": out.Number})
	return out, nil
}

func copyItems(items []documents.LineItem) []documents.LineItem {
	out := make([]documents.LineItem, len(items))
	for i, item := range items {
		item.ID = 0
		out[i] = item
	}
	return out
}
