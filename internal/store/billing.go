package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/shared"
)

// GetClientPOForUpdate loads and locks a client PO with its items.
func (t *Tx) GetClientPOForUpdate(ctx context.Context, id int64) (billing.ClientPO, error) {
	var po billing.ClientPO
	err := t.tx.QueryRow(ctx, `
		SELECT id, internal_number, client_po_number, client_id, branch_id, subject, valid_from, valid_until,
		       frequency, is_igst, place_of_supply, status, subtotal, discount_percent, discount_amount,
		       taxable_amount, cgst_amount, sgst_amount, igst_amount, total_amount, invoiced_amount,
		       remaining_amount, created_at, updated_at
		FROM client_pos WHERE id = $1 FOR UPDATE`, id).Scan(
		&po.ID, &po.InternalNumber, &po.ClientPONumber, &po.ClientID, &po.BranchID, &po.Subject, &po.ValidFrom, &po.ValidUntil,
		&po.Frequency, &po.IsIGST, &po.PlaceOfSupply, &po.Status, &po.Subtotal, &po.DiscountPercent, &po.DiscountAmount,
		&po.TaxableAmount, &po.CGSTAmount, &po.SGSTAmount, &po.IGSTAmount, &po.TotalAmount, &po.InvoicedAmount,
		&po.RemainingAmount, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return billing.ClientPO{}, notFound(err, "client PO", id)
	}

	rows, err := t.tx.Query(ctx, `
		SELECT id, serial_no, description, hsn_sac, quantity, unit, rate, amount, gst_rate,
		       cgst_amount, sgst_amount, igst_amount, total_amount
		FROM client_po_items WHERE client_po_id = $1 ORDER BY serial_no`, id)
	if err != nil {
		return billing.ClientPO{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it billing.ClientPOItem
		if err := rows.Scan(&it.ID, &it.SerialNo, &it.Description, &it.HSNSAC, &it.Quantity, &it.Unit, &it.Rate,
			&it.Amount, &it.GSTRate, &it.CGSTAmount, &it.SGSTAmount, &it.IGSTAmount, &it.TotalAmount); err != nil {
			return billing.ClientPO{}, err
		}
		po.Items = append(po.Items, it)
	}
	return po, rows.Err()
}

// InsertClientPO stores a PO header and its items and returns them with ids.
func (t *Tx) InsertClientPO(ctx context.Context, po billing.ClientPO) (billing.ClientPO, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO client_pos (internal_number, client_po_number, client_id, branch_id, subject, valid_from,
			valid_until, frequency, is_igst, place_of_supply, status, subtotal, discount_percent, discount_amount,
			taxable_amount, cgst_amount, sgst_amount, igst_amount, total_amount, invoiced_amount, remaining_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at, updated_at`,
		po.InternalNumber, po.ClientPONumber, po.ClientID, po.BranchID, po.Subject, po.ValidFrom,
		po.ValidUntil, string(po.Frequency), po.IsIGST, po.PlaceOfSupply, string(po.Status), po.Subtotal,
		po.DiscountPercent, po.DiscountAmount, po.TaxableAmount, po.CGSTAmount, po.SGSTAmount, po.IGSTAmount,
		po.TotalAmount, po.InvoicedAmount, po.RemainingAmount,
	).Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return billing.ClientPO{}, err
	}

	for i := range po.Items {
		it := &po.Items[i]
		err := t.tx.QueryRow(ctx, `
			INSERT INTO client_po_items (client_po_id, serial_no, description, hsn_sac, quantity, unit, rate,
				amount, gst_rate, cgst_amount, sgst_amount, igst_amount, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id`,
			po.ID, it.SerialNo, it.Description, it.HSNSAC, it.Quantity, it.Unit, it.Rate,
			it.Amount, it.GSTRate, it.CGSTAmount, it.SGSTAmount, it.IGSTAmount, it.TotalAmount,
		).Scan(&it.ID)
		if err != nil {
			return billing.ClientPO{}, err
		}
	}
	return po, nil
}

// UpdateClientPOFulfillment stores the invoiced and remaining amounts and status.
func (t *Tx) UpdateClientPOFulfillment(ctx context.Context, po billing.ClientPO) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE client_pos SET invoiced_amount = $2, remaining_amount = $3, status = $4, updated_at = NOW()
		WHERE id = $1`, po.ID, po.InvoicedAmount, po.RemainingAmount, string(po.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("client PO", po.ID)
	}
	return nil
}

const scheduleColumns = `
	id, client_po_id, installment_number, description, due_date, amount, gst_amount, total_amount,
	status, proforma_id, invoice_id, notes, created_at, updated_at`

func scanSchedule(row pgx.Row) (billing.BillingSchedule, error) {
	var s billing.BillingSchedule
	err := row.Scan(&s.ID, &s.ClientPOID, &s.InstallmentNumber, &s.Description, &s.DueDate, &s.Amount,
		&s.GSTAmount, &s.TotalAmount, &s.Status, &s.ProformaID, &s.InvoiceID, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// ListSchedules returns a PO's installments in order.
func (t *Tx) ListSchedules(ctx context.Context, poID int64) ([]billing.BillingSchedule, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+scheduleColumns+` FROM billing_schedules
		WHERE client_po_id = $1 ORDER BY installment_number`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.BillingSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeletePendingSchedules removes every PENDING installment of a PO.
func (t *Tx) DeletePendingSchedules(ctx context.Context, poID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM billing_schedules WHERE client_po_id = $1 AND status = $2`,
		poID, string(billing.SchedulePending))
	return err
}

// InsertSchedules stores installments and returns them with ids.
func (t *Tx) InsertSchedules(ctx context.Context, schedules []billing.BillingSchedule) ([]billing.BillingSchedule, error) {
	out := make([]billing.BillingSchedule, 0, len(schedules))
	for _, s := range schedules {
		err := t.tx.QueryRow(ctx, `
			INSERT INTO billing_schedules (client_po_id, installment_number, description, due_date, amount,
				gst_amount, total_amount, status, proforma_id, invoice_id, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at`,
			s.ClientPOID, s.InstallmentNumber, s.Description, s.DueDate, s.Amount,
			s.GSTAmount, s.TotalAmount, string(s.Status), s.ProformaID, s.InvoiceID, s.Notes,
		).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// GetScheduleForUpdate loads and locks one installment.
func (t *Tx) GetScheduleForUpdate(ctx context.Context, id int64) (billing.BillingSchedule, error) {
	s, err := scanSchedule(t.tx.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM billing_schedules WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return billing.BillingSchedule{}, notFound(err, "billing schedule", id)
	}
	return s, nil
}

// UpdateSchedule stores every mutable installment field.
func (t *Tx) UpdateSchedule(ctx context.Context, s billing.BillingSchedule) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE billing_schedules SET description = $2, due_date = $3, amount = $4, gst_amount = $5,
			total_amount = $6, status = $7, proforma_id = $8, invoice_id = $9, notes = $10, updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.Description, s.DueDate, s.Amount, s.GSTAmount, s.TotalAmount, string(s.Status), s.ProformaID, s.InvoiceID, s.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("billing schedule", s.ID)
	}
	return nil
}

// DeleteSchedule removes one installment.
func (t *Tx) DeleteSchedule(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM billing_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("billing schedule", id)
	}
	return nil
}
