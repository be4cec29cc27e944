package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/shared"
)

// NextSequence increments the series for prefix and financial year. The first
// number of a series continues after the highest number already issued, so a
// lost sequence row never reissues a number.
func (t *Tx) NextSequence(ctx context.Context, prefix, fy string) (int64, error) {
	const query = `
		INSERT INTO number_sequences (prefix, financial_year, last_value)
		VALUES ($1, $2, COALESCE((
			SELECT MAX(sequence) FROM issued_numbers WHERE prefix = $1 AND financial_year = $2
		), 0) + 1)
		ON CONFLICT (prefix, financial_year)
		DO UPDATE SET last_value = number_sequences.last_value + 1, updated_at = NOW()
		RETURNING last_value`
	var next int64
	if err := t.tx.QueryRow(ctx, query, prefix, fy).Scan(&next); err != nil {
		return 0, fmt.Errorf("store: next sequence %s/%s: %w", prefix, fy, err)
	}
	return next, nil
}

// InsertEntries writes voucher lines in one batch.
func (t *Tx) InsertEntries(ctx context.Context, entries []ledger.Entry) error {
	const query = `
		INSERT INTO ledger_entries (
			voucher_id, voucher_number, entry_date, financial_year, account_id,
			debit, credit, reference_type, reference_id, reversal_of, narration,
			client_id, vendor_id, branch_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query,
			e.VoucherID, e.VoucherNumber, e.EntryDate, e.FinancialYear, e.AccountID,
			e.Debit, e.Credit, string(e.ReferenceType), e.ReferenceID, e.ReversalOf, e.Narration,
			e.ClientID, e.VendorID, e.BranchID,
		)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

// ListEntriesByReference returns the lines written for one document in insertion order.
func (t *Tx) ListEntriesByReference(ctx context.Context, ref ledger.ReferenceType, id int64) ([]ledger.Entry, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, voucher_id, voucher_number, entry_date, financial_year, account_id,
		       debit, credit, reference_type, reference_id, reversal_of, narration,
		       client_id, vendor_id, branch_id, created_at
		FROM ledger_entries
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY id`, string(ref), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(
			&e.ID, &e.VoucherID, &e.VoucherNumber, &e.EntryDate, &e.FinancialYear, &e.AccountID,
			&e.Debit, &e.Credit, &e.ReferenceType, &e.ReferenceID, &e.ReversalOf, &e.Narration,
			&e.ClientID, &e.VendorID, &e.BranchID, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetPosted flips the posted flag of an invoice or payment.
func (t *Tx) SetPosted(ctx context.Context, ref ledger.ReferenceType, id int64, posted bool) error {
	var query string
	switch ref {
	case ledger.ReferenceInvoice:
		query = `UPDATE invoices SET is_posted = $2, updated_at = NOW() WHERE id = $1`
	case ledger.ReferencePayment:
		query = `UPDATE payments SET is_posted = $2, updated_at = NOW() WHERE id = $1`
	default:
		return fmt.Errorf("store: %s has no posted flag", ref)
	}
	tag, err := t.tx.Exec(ctx, query, id, posted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound(string(ref), id)
	}
	return nil
}

const accountColumns = `id, code, name, account_type, account_group, parent_id, description, is_active, is_system, created_at, updated_at`

func scanAccount(row pgx.Row) (coa.Account, error) {
	var a coa.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Group, &a.ParentID, &a.Description, &a.IsActive, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetAccount loads an account by id.
func (t *Tx) GetAccount(ctx context.Context, id int64) (coa.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM chart_of_accounts WHERE id = $1`, id))
	if err != nil {
		return coa.Account{}, notFound(err, "account", id)
	}
	return a, nil
}

// GetAccountByCode loads an account by code.
func (t *Tx) GetAccountByCode(ctx context.Context, code string) (coa.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM chart_of_accounts WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return coa.Account{}, shared.ErrNotFound
	}
	return a, err
}

// InsertAccount stores a new account.
func (t *Tx) InsertAccount(ctx context.Context, a coa.Account) (coa.Account, error) {
	return scanAccount(t.tx.QueryRow(ctx, `
		INSERT INTO chart_of_accounts (code, name, account_type, account_group, parent_id, description, is_active, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+accountColumns,
		a.Code, a.Name, string(a.Type), string(a.Group), a.ParentID, a.Description, a.IsActive, a.IsSystem))
}

// UnbalancedVouchers reports vouchers whose debit and credit totals differ.
func (s *Store) UnbalancedVouchers(ctx context.Context) ([]ledger.VoucherImbalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT voucher_number, SUM(debit), SUM(credit)
		FROM ledger_entries
		GROUP BY voucher_number
		HAVING SUM(debit) <> SUM(credit)
		ORDER BY voucher_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.VoucherImbalance
	for rows.Next() {
		var (
			v             ledger.VoucherImbalance
			debit, credit decimal.Decimal
		)
		if err := rows.Scan(&v.VoucherNumber, &debit, &credit); err != nil {
			return nil, err
		}
		v.Debit, v.Credit = debit, credit
		out = append(out, v)
	}
	return out, rows.Err()
}
