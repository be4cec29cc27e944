// Package ledger turns invoices, payments and manual journals into balanced
// double-entry vouchers and reverses them.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/numbering"
)

// ReferenceType names the kind of document a voucher was posted for.
type ReferenceType string

const (
	ReferenceInvoice ReferenceType = "INVOICE"
	ReferencePayment ReferenceType = "PAYMENT"
	ReferenceJournal ReferenceType = "JOURNAL"
	ReferenceOpening ReferenceType = "OPENING"
)

// VoucherPrefix returns the numbering prefix for vouchers of this reference type.
func (r ReferenceType) VoucherPrefix() string {
	switch r {
	case ReferenceInvoice:
		return "JV-INV"
	case ReferencePayment:
		return "JV-PAY"
	case ReferenceOpening:
		return "JV-OPN"
	default:
		return "JV"
	}
}

// Side is the debit or credit side of a leg.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Entry is one persisted ledger line. All entries of a voucher share
// VoucherNumber, EntryDate and FinancialYear.
type Entry struct {
	ID            int64
	VoucherID     uuid.UUID
	VoucherNumber string
	EntryDate     time.Time
	FinancialYear string
	AccountID     int64
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   int64
	// ReversalOf holds the voucher number this entry mirrors, empty for forward postings.
	ReversalOf string
	Narration  string
	ClientID   *int64
	VendorID   *int64
	BranchID   *int64
	CreatedAt  time.Time
}

// SkippedLeg records a leg dropped because its default account was not configured.
type SkippedLeg struct {
	Role      coa.DefaultAccount
	Side      Side
	Amount    decimal.Decimal
	Narration string
}

// Result describes one posting or reversal.
type Result struct {
	VoucherNumber string
	FinancialYear string
	Entries       []Entry
	Skipped       []SkippedLeg
}

// TotalDebit sums the debit column.
func (r Result) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Entries {
		total = total.Add(e.Debit)
	}
	return total
}

// TotalCredit sums the credit column.
func (r Result) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Entries {
		total = total.Add(e.Credit)
	}
	return total
}

// Balanced reports whether debits equal credits.
func (r Result) Balanced() bool {
	return r.TotalDebit().Equal(r.TotalCredit())
}

// Tx is the transactional persistence the engine needs. The counter must
// participate in the same transaction so numbers roll back with the voucher.
type Tx interface {
	numbering.Counter
	InsertEntries(ctx context.Context, entries []Entry) error
	// ListEntriesByReference returns entries in insertion order.
	ListEntriesByReference(ctx context.Context, ref ReferenceType, id int64) ([]Entry, error)
	SetPosted(ctx context.Context, ref ReferenceType, id int64, posted bool) error
	GetAccount(ctx context.Context, id int64) (coa.Account, error)
}

// VoucherImbalance reports a persisted voucher whose columns differ.
type VoucherImbalance struct {
	VoucherNumber string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// IntegrityReader scans persisted vouchers.
type IntegrityReader interface {
	UnbalancedVouchers(ctx context.Context) ([]VoucherImbalance, error)
}

// FindImbalances groups entries by voucher and returns those that do not balance.
func FindImbalances(entries []Entry) []VoucherImbalance {
	type sums struct{ debit, credit decimal.Decimal }
	order := make([]string, 0)
	byVoucher := make(map[string]*sums)
	for _, e := range entries {
		s, ok := byVoucher[e.VoucherNumber]
		if !ok {
			s = &sums{debit: decimal.Zero, credit: decimal.Zero}
			byVoucher[e.VoucherNumber] = s
			order = append(order, e.VoucherNumber)
		}
		s.debit = s.debit.Add(e.Debit)
		s.credit = s.credit.Add(e.Credit)
	}
	var out []VoucherImbalance
	for _, number := range order {
		s := byVoucher[number]
		if !s.debit.Equal(s.credit) {
			out = append(out, VoucherImbalance{VoucherNumber: number, Debit: s.debit, Credit: s.credit})
		}
	}
	return out
}
