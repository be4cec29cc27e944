package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/shared"
)

const (
	itemsOfInvoice  = "INVOICE"
	itemsOfProforma = "PROFORMA"
)

const invoiceColumns = `
	id, number, invoice_type, status, invoice_date, due_date, client_id, vendor_id, branch_id,
	client_po_id, billing_schedule_id, proforma_id, is_igst, place_of_supply,
	tds_applicable, tds_rate, tcs_applicable, tcs_rate,
	subtotal, discount_percent, discount_amount, taxable_amount, cgst_amount, sgst_amount,
	igst_amount, cess_amount, round_off, total_amount, tds_amount, tcs_amount, amount_after_tds,
	amount_paid, amount_due, is_posted, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (documents.Invoice, error) {
	var inv documents.Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.Type, &inv.Status, &inv.Date, &inv.DueDate, &inv.ClientID, &inv.VendorID, &inv.BranchID,
		&inv.ClientPOID, &inv.BillingScheduleID, &inv.ProformaID, &inv.IsIGST, &inv.PlaceOfSupply,
		&inv.TDSApplicable, &inv.TDSRate, &inv.TCSApplicable, &inv.TCSRate,
		&inv.Subtotal, &inv.DiscountPercent, &inv.DiscountAmount, &inv.TaxableAmount, &inv.CGSTAmount, &inv.SGSTAmount,
		&inv.IGSTAmount, &inv.CessAmount, &inv.RoundOff, &inv.TotalAmount, &inv.TDSAmount, &inv.TCSAmount, &inv.AmountAfterTDS,
		&inv.AmountPaid, &inv.AmountDue, &inv.IsPosted, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	return inv, err
}

// InsertInvoice stores an invoice with its lines and assigns ids.
func (t *Tx) InsertInvoice(ctx context.Context, inv *documents.Invoice) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (
			number, invoice_type, status, invoice_date, due_date, client_id, vendor_id, branch_id,
			client_po_id, billing_schedule_id, proforma_id, is_igst, place_of_supply,
			tds_applicable, tds_rate, tcs_applicable, tcs_rate,
			subtotal, discount_percent, discount_amount, taxable_amount, cgst_amount, sgst_amount,
			igst_amount, cess_amount, round_off, total_amount, tds_amount, tcs_amount, amount_after_tds,
			amount_paid, amount_due, is_posted, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34
		) RETURNING id, created_at, updated_at`,
		inv.Number, string(inv.Type), string(inv.Status), inv.Date, inv.DueDate, inv.ClientID, inv.VendorID, inv.BranchID,
		inv.ClientPOID, inv.BillingScheduleID, inv.ProformaID, inv.IsIGST, inv.PlaceOfSupply,
		inv.TDSApplicable, inv.TDSRate, inv.TCSApplicable, inv.TCSRate,
		inv.Subtotal, inv.DiscountPercent, inv.DiscountAmount, inv.TaxableAmount, inv.CGSTAmount, inv.SGSTAmount,
		inv.IGSTAmount, inv.CessAmount, inv.RoundOff, inv.TotalAmount, inv.TDSAmount, inv.TCSAmount, inv.AmountAfterTDS,
		inv.AmountPaid, inv.AmountDue, inv.IsPosted, inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return err
	}
	return t.insertItems(ctx, itemsOfInvoice, inv.ID, inv.Items)
}

// GetInvoiceForUpdate loads and locks an invoice with its lines.
func (t *Tx) GetInvoiceForUpdate(ctx context.Context, id int64) (documents.Invoice, error) {
	inv, err := scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return documents.Invoice{}, notFound(err, "invoice", id)
	}
	inv.Items, err = t.listItems(ctx, itemsOfInvoice, id)
	return inv, err
}

// UpdateInvoiceState stores status and payment amounts.
func (t *Tx) UpdateInvoiceState(ctx context.Context, inv documents.Invoice) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE invoices SET status = $2, amount_paid = $3, amount_due = $4, updated_at = NOW()
		WHERE id = $1`, inv.ID, string(inv.Status), inv.AmountPaid, inv.AmountDue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("invoice", inv.ID)
	}
	return nil
}

// ListInvoicesByClientPO returns invoice headers linked to a PO.
func (t *Tx) ListInvoicesByClientPO(ctx context.Context, poID int64) ([]documents.Invoice, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE client_po_id = $1 ORDER BY id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []documents.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (t *Tx) insertItems(ctx context.Context, docType string, docID int64, items []documents.LineItem) error {
	for i := range items {
		it := &items[i]
		err := t.tx.QueryRow(ctx, `
			INSERT INTO document_items (
				document_type, document_id, serial_no, description, hsn_sac, unit, quantity, rate,
				discount_percent, gst_rate, cess_rate, amount, discount_amount, taxable_amount,
				cgst_rate, sgst_rate, igst_rate, cgst_amount, sgst_amount, igst_amount, cess_amount, total_amount
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
			RETURNING id`,
			docType, docID, it.SerialNo, it.Description, it.HSNSAC, it.Unit, it.Quantity, it.Rate,
			it.DiscountPercent, it.GSTRate, it.CessRate, it.Amount, it.DiscountAmount, it.TaxableAmount,
			it.CGSTRate, it.SGSTRate, it.IGSTRate, it.CGSTAmount, it.SGSTAmount, it.IGSTAmount, it.CessAmount, it.TotalAmount,
		).Scan(&it.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) listItems(ctx context.Context, docType string, docID int64) ([]documents.LineItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, serial_no, description, hsn_sac, unit, quantity, rate,
		       discount_percent, gst_rate, cess_rate, amount, discount_amount, taxable_amount,
		       cgst_rate, sgst_rate, igst_rate, cgst_amount, sgst_amount, igst_amount, cess_amount, total_amount
		FROM document_items
		WHERE document_type = $1 AND document_id = $2
		ORDER BY serial_no`, docType, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []documents.LineItem
	for rows.Next() {
		var it documents.LineItem
		if err := rows.Scan(
			&it.ID, &it.SerialNo, &it.Description, &it.HSNSAC, &it.Unit, &it.Quantity, &it.Rate,
			&it.DiscountPercent, &it.GSTRate, &it.CessRate, &it.Amount, &it.DiscountAmount, &it.TaxableAmount,
			&it.CGSTRate, &it.SGSTRate, &it.IGSTRate, &it.CGSTAmount, &it.SGSTAmount, &it.IGSTAmount, &it.CessAmount, &it.TotalAmount,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

const paymentColumns = `
	id, number, payment_type, payment_mode, status, payment_date, client_id, vendor_id, branch_id,
	invoice_id, gross_amount, tds_amount, tcs_amount, net_amount, reference_number, notes,
	is_posted, created_at, updated_at`

// InsertPayment stores a payment and assigns its id.
func (t *Tx) InsertPayment(ctx context.Context, p *documents.Payment) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO payments (
			number, payment_type, payment_mode, status, payment_date, client_id, vendor_id, branch_id,
			invoice_id, gross_amount, tds_amount, tcs_amount, net_amount, reference_number, notes, is_posted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`,
		p.Number, string(p.Type), string(p.Mode), string(p.Status), p.Date, p.ClientID, p.VendorID, p.BranchID,
		p.InvoiceID, p.GrossAmount, p.TDSAmount, p.TCSAmount, p.NetAmount, p.ReferenceNumber, p.Notes, p.IsPosted,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetPaymentForUpdate loads and locks a payment.
func (t *Tx) GetPaymentForUpdate(ctx context.Context, id int64) (documents.Payment, error) {
	var p documents.Payment
	err := t.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id).Scan(
		&p.ID, &p.Number, &p.Type, &p.Mode, &p.Status, &p.Date, &p.ClientID, &p.VendorID, &p.BranchID,
		&p.InvoiceID, &p.GrossAmount, &p.TDSAmount, &p.TCSAmount, &p.NetAmount, &p.ReferenceNumber, &p.Notes,
		&p.IsPosted, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return documents.Payment{}, notFound(err, "payment", id)
	}
	return p, nil
}

// UpdatePaymentStatus stores a payment status.
func (t *Tx) UpdatePaymentStatus(ctx context.Context, id int64, status documents.PaymentStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("payment", id)
	}
	return nil
}

const proformaColumns = `
	id, number, status, pi_date, due_date, valid_until, client_id, branch_id,
	client_po_id, billing_schedule_id, invoice_id, is_igst, place_of_supply,
	tds_applicable, tds_rate, tcs_applicable, tcs_rate,
	subtotal, discount_percent, discount_amount, taxable_amount, cgst_amount, sgst_amount,
	igst_amount, cess_amount, round_off, total_amount, tds_amount, tcs_amount, amount_after_tds,
	notes, created_at, updated_at`

// InsertProforma stores a proforma with its lines and assigns ids.
func (t *Tx) InsertProforma(ctx context.Context, pi *documents.ProformaInvoice) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO proforma_invoices (
			number, status, pi_date, due_date, valid_until, client_id, branch_id,
			client_po_id, billing_schedule_id, invoice_id, is_igst, place_of_supply,
			tds_applicable, tds_rate, tcs_applicable, tcs_rate,
			subtotal, discount_percent, discount_amount, taxable_amount, cgst_amount, sgst_amount,
			igst_amount, cess_amount, round_off, total_amount, tds_amount, tcs_amount, amount_after_tds, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30
		) RETURNING id, created_at, updated_at`,
		pi.Number, string(pi.Status), pi.Date, pi.DueDate, pi.ValidUntil, pi.ClientID, pi.BranchID,
		pi.ClientPOID, pi.BillingScheduleID, pi.InvoiceID, pi.IsIGST, pi.PlaceOfSupply,
		pi.TDSApplicable, pi.TDSRate, pi.TCSApplicable, pi.TCSRate,
		pi.Subtotal, pi.DiscountPercent, pi.DiscountAmount, pi.TaxableAmount, pi.CGSTAmount, pi.SGSTAmount,
		pi.IGSTAmount, pi.CessAmount, pi.RoundOff, pi.TotalAmount, pi.TDSAmount, pi.TCSAmount, pi.AmountAfterTDS, pi.Notes,
	).Scan(&pi.ID, &pi.CreatedAt, &pi.UpdatedAt)
	if err != nil {
		return err
	}
	return t.insertItems(ctx, itemsOfProforma, pi.ID, pi.Items)
}

// GetProformaForUpdate loads and locks a proforma with its lines.
func (t *Tx) GetProformaForUpdate(ctx context.Context, id int64) (documents.ProformaInvoice, error) {
	var pi documents.ProformaInvoice
	err := t.tx.QueryRow(ctx, `SELECT `+proformaColumns+` FROM proforma_invoices WHERE id = $1 FOR UPDATE`, id).Scan(
		&pi.ID, &pi.Number, &pi.Status, &pi.Date, &pi.DueDate, &pi.ValidUntil, &pi.ClientID, &pi.BranchID,
		&pi.ClientPOID, &pi.BillingScheduleID, &pi.InvoiceID, &pi.IsIGST, &pi.PlaceOfSupply,
		&pi.TDSApplicable, &pi.TDSRate, &pi.TCSApplicable, &pi.TCSRate,
		&pi.Subtotal, &pi.DiscountPercent, &pi.DiscountAmount, &pi.TaxableAmount, &pi.CGSTAmount, &pi.SGSTAmount,
		&pi.IGSTAmount, &pi.CessAmount, &pi.RoundOff, &pi.TotalAmount, &pi.TDSAmount, &pi.TCSAmount, &pi.AmountAfterTDS,
		&pi.Notes, &pi.CreatedAt, &pi.UpdatedAt,
	)
	if err != nil {
		return documents.ProformaInvoice{}, notFound(err, "proforma invoice", id)
	}
	pi.Items, err = t.listItems(ctx, itemsOfProforma, id)
	return pi, err
}

// UpdateProformaState stores status and the generated invoice link.
func (t *Tx) UpdateProformaState(ctx context.Context, pi documents.ProformaInvoice) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE proforma_invoices SET status = $2, invoice_id = $3, updated_at = NOW()
		WHERE id = $1`, pi.ID, string(pi.Status), pi.InvoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("proforma invoice", pi.ID)
	}
	return nil
}
