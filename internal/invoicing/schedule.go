package invoicing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/money"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/tax"
)

var defaultScheduleGSTRate = decimal.NewFromInt(18)

// CreateInvoiceFromSchedule raises a one-line sales invoice for a pending
// installment. The installment becomes INVOICED and the PO is recomputed.
func (s *Service) CreateInvoiceFromSchedule(ctx context.Context, st settings.CompanySettings, scheduleID int64, in FromScheduleInput) (documents.Invoice, error) {
	if err := s.check(in); err != nil {
		return documents.Invoice{}, err
	}
	if err := checkDocument(decimal.Zero, decimal.Zero, in.Withholding); err != nil {
		return documents.Invoice{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	var out documents.Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sch, po, err := s.pendingSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		item, totals := installmentDocument(sch, po, in.Withholding)
		clientID := po.ClientID
		inv := documents.Invoice{
			Type:              documents.InvoiceSales,
			Status:            documents.InvoiceDraft,
			Date:              date,
			DueDate:           in.DueDate,
			ClientID:          &clientID,
			BranchID:          po.BranchID,
			ClientPOID:        &po.ID,
			BillingScheduleID: &sch.ID,
			IsIGST:            po.IsIGST,
			PlaceOfSupply:     po.PlaceOfSupply,
			Withholding:       in.Withholding,
			Totals:            totals,
			AmountPaid:        decimal.Zero,
			AmountDue:         totals.AmountDue(decimal.Zero),
			Notes:             in.Notes,
			Items:             []documents.LineItem{item},
		}
		if err := s.insertInvoice(ctx, tx, st, &inv); err != nil {
			return err
		}
		sch.Status = billing.ScheduleInvoiced
		sch.InvoiceID = &inv.ID
		if err := tx.UpdateSchedule(ctx, sch); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return documents.Invoice{}, err
	}
	s.logger.InfoContext(ctx, "invoice raised from billing schedule",
		slog.Int64("schedule_id", scheduleID),
		slog.String("number", out.Number),
	)
	return out, nil
}

// CreateProformaFromSchedule raises a proforma for a pending installment and
// marks it PI_RAISED.
func (s *Service) CreateProformaFromSchedule(ctx context.Context, st settings.CompanySettings, scheduleID int64, in FromScheduleInput) (documents.ProformaInvoice, error) {
	if err := s.check(in); err != nil {
		return documents.ProformaInvoice{}, err
	}
	if err := checkDocument(decimal.Zero, decimal.Zero, in.Withholding); err != nil {
		return documents.ProformaInvoice{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	var out documents.ProformaInvoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sch, po, err := s.pendingSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		item, totals := installmentDocument(sch, po, in.Withholding)
		pi := documents.ProformaInvoice{
			Status:            documents.ProformaDraft,
			Date:              date,
			DueDate:           in.DueDate,
			ClientID:          po.ClientID,
			BranchID:          po.BranchID,
			ClientPOID:        &po.ID,
			BillingScheduleID: &sch.ID,
			IsIGST:            po.IsIGST,
			PlaceOfSupply:     po.PlaceOfSupply,
			Withholding:       in.Withholding,
			Totals:            totals,
			Notes:             in.Notes,
			Items:             []documents.LineItem{item},
		}
		if err := s.insertProforma(ctx, tx, st, &pi); err != nil {
			return err
		}
		sch.Status = billing.SchedulePIRaised
		sch.ProformaID = &pi.ID
		if err := tx.UpdateSchedule(ctx, sch); err != nil {
			return err
		}
		out = pi
		return nil
	})
	if err != nil {
		return documents.ProformaInvoice{}, err
	}
	return out, nil
}

func (s *Service) pendingSchedule(ctx context.Context, tx TxRepository, id int64) (billing.BillingSchedule, billing.ClientPO, error) {
	sch, err := tx.GetScheduleForUpdate(ctx, id)
	if err != nil {
		return billing.BillingSchedule{}, billing.ClientPO{}, err
	}
	if sch.Status != billing.SchedulePending {
		return billing.BillingSchedule{}, billing.ClientPO{}, fmt.Errorf("%w: installment %d is %s", ErrScheduleNotPending, sch.InstallmentNumber, sch.Status)
	}
	po, err := tx.GetClientPOForUpdate(ctx, sch.ClientPOID)
	if err != nil {
		return billing.BillingSchedule{}, billing.ClientPO{}, err
	}
	switch po.Status {
	case billing.ClientPOCancelled, billing.ClientPOExpired:
		return billing.BillingSchedule{}, billing.ClientPO{}, billing.ErrClientPOClosed
	}
	return sch, po, nil
}

// installmentDocument builds the single line and totals of a document raised
// from an installment. The installment's GST is conserved exactly; no
// round-off is applied.
func installmentDocument(sch billing.BillingSchedule, po billing.ClientPO, w documents.Withholding) (documents.LineItem, tax.Totals) {
	rate := defaultScheduleGSTRate
	if sch.Amount.IsPositive() {
		rate = money.Round2(sch.GSTAmount.Div(sch.Amount).Mul(money.Hundred))
	}
	amounts := tax.LineAmounts{
		Amount:         sch.Amount,
		DiscountAmount: decimal.Zero,
		TaxableAmount:  sch.Amount,
		CGSTRate:       decimal.Zero,
		SGSTRate:       decimal.Zero,
		IGSTRate:       decimal.Zero,
		CGSTAmount:     decimal.Zero,
		SGSTAmount:     decimal.Zero,
		IGSTAmount:     decimal.Zero,
		CessAmount:     decimal.Zero,
		TotalAmount:    sch.TotalAmount,
	}
	if po.IsIGST {
		amounts.IGSTRate = rate
		amounts.IGSTAmount = sch.GSTAmount
	} else {
		half := rate.Div(decimal.NewFromInt(2))
		amounts.CGSTRate = half
		amounts.SGSTRate = half
		amounts.CGSTAmount = money.Round2(sch.GSTAmount.Div(decimal.NewFromInt(2)))
		amounts.SGSTAmount = sch.GSTAmount.Sub(amounts.CGSTAmount)
	}
	description := sch.Description
	if po.Subject != "" {
		description = po.Subject + " - " + sch.Description
	}
	item := documents.LineItem{
		SerialNo:    1,
		Description: description,
		Unit:        "NOS",
		Quantity:    decimal.NewFromInt(1),
		Rate:        sch.Amount,
		GSTRate:     rate,
		CessRate:    decimal.Zero,
		LineAmounts: amounts,
	}

	tds, tcs := decimal.Zero, decimal.Zero
	if w.TDSApplicable {
		tds = money.Round2(money.Percent(sch.Amount, w.TDSRate))
	}
	if w.TCSApplicable {
		tcs = money.Round2(money.Percent(sch.TotalAmount, w.TCSRate))
	}
	totals := tax.Totals{
		Subtotal:        sch.Amount,
		DiscountPercent: decimal.Zero,
		DiscountAmount:  decimal.Zero,
		TaxableAmount:   sch.Amount,
		CGSTAmount:      amounts.CGSTAmount,
		SGSTAmount:      amounts.SGSTAmount,
		IGSTAmount:      amounts.IGSTAmount,
		CessAmount:      decimal.Zero,
		RoundOff:        decimal.Zero,
		TotalAmount:     sch.TotalAmount,
		TDSAmount:       tds,
		TCSAmount:       tcs,
		AmountAfterTDS:  sch.TotalAmount.Sub(tds).Add(tcs),
	}
	return item, totals
}
