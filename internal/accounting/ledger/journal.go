package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/fiscal"
	"github.com/gstbooks/gstbooks/internal/numbering"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/shared"
)

// JournalLine is one line of a manual journal.
type JournalLine struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Narration string
}

// JournalInput is a manual journal entry or opening balance.
type JournalInput struct {
	Date      time.Time
	Narration string
	Opening   bool
	BranchID  *int64
	Lines     []JournalLine
}

// Validate enforces shape and balance.
func (in JournalInput) Validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date required", ErrInvalidJournal)
	}
	if len(in.Lines) < 2 {
		return fmt.Errorf("%w: at least two lines required", ErrInvalidJournal)
	}
	debit, credit := decimal.Zero, decimal.Zero
	for i, line := range in.Lines {
		if line.AccountID <= 0 {
			return fmt.Errorf("%w: line %d missing account", ErrInvalidJournal, i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d has a negative amount", ErrInvalidJournal, i+1)
		}
		if line.Debit.IsPositive() == line.Credit.IsPositive() {
			return fmt.Errorf("%w: line %d must have either a debit or a credit", ErrInvalidJournal, i+1)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s does not equal credit %s", ErrUnbalancedVoucher, debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// PostJournal writes a balanced manual voucher.
func (e *Engine) PostJournal(ctx context.Context, tx Tx, in JournalInput, s settings.CompanySettings) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	for _, line := range in.Lines {
		account, err := tx.GetAccount(ctx, line.AccountID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Result{}, shared.NotFound("account", line.AccountID)
			}
			return Result{}, err
		}
		if !account.IsActive {
			return Result{}, fmt.Errorf("%w: account %s is inactive", ErrInvalidJournal, account.Code)
		}
	}
	ref := ReferenceJournal
	if in.Opening {
		ref = ReferenceOpening
	}
	date := dateOnly(in.Date)
	fy := fiscal.FinancialYear(date, s.FYStartMonth())
	number, err := numbering.NewService(tx).Next(ctx, ref.VoucherPrefix(), fy)
	if err != nil {
		return Result{}, err
	}
	voucherID := voucherUUID(ref, 0, number)
	entries := make([]Entry, len(in.Lines))
	for i, line := range in.Lines {
		narration := line.Narration
		if narration == "" {
			narration = in.Narration
		}
		entries[i] = Entry{
			VoucherID:     voucherID,
			VoucherNumber: number,
			EntryDate:     date,
			FinancialYear: fy,
			AccountID:     line.AccountID,
			Debit:         line.Debit,
			Credit:        line.Credit,
			ReferenceType: ref,
			Narration:     narration,
			BranchID:      in.BranchID,
		}
	}
	if err := tx.InsertEntries(ctx, entries); err != nil {
		return Result{}, fmt.Errorf("ledger: insert %s: %w", number, err)
	}
	e.record(func(r Recorder) { r.VoucherPosted(ref, false) })
	e.logger.InfoContext(ctx, "journal posted", slog.String("voucher", number), slog.Int("lines", len(entries)))
	return Result{VoucherNumber: number, FinancialYear: fy, Entries: entries}, nil
}
