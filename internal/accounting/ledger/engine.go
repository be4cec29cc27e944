package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/fiscal"
	"github.com/gstbooks/gstbooks/internal/numbering"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/shared"
)

// Recorder receives posting outcomes, typically for metrics.
type Recorder interface {
	VoucherPosted(ref ReferenceType, reversal bool)
	LegSkipped(role coa.DefaultAccount)
	PostingFailed(ref ReferenceType, reason string)
}

// Locker serialises posting of one document across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// Engine posts and reverses vouchers inside a caller-supplied transaction.
type Engine struct {
	logger   *slog.Logger
	recorder Recorder
	locker   Locker
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLocker attaches a distributed posting lock.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// NewEngine constructs the posting engine.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// WithDocumentLock runs fn while holding the posting lock of one document.
// Without a Locker fn runs directly and the row lock taken by the caller's
// transaction is the only guard.
func (e *Engine) WithDocumentLock(ctx context.Context, ref ReferenceType, id int64, fn func(context.Context) error) error {
	if e.locker == nil {
		return fn(ctx)
	}
	unlock, err := e.locker.Lock(ctx, shared.PostingLockKey(string(ref), id))
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("release posting lock", slog.String("reference", string(ref)), slog.Int64("id", id), slog.Any("error", err))
		}
	}()
	return fn(ctx)
}

type voucherHeader struct {
	ref      ReferenceType
	id       int64
	number   string
	date     time.Time
	clientID *int64
	vendorID *int64
	branchID *int64
}

// PostInvoice writes the invoice voucher and marks the invoice posted.
func (e *Engine) PostInvoice(ctx context.Context, tx Tx, inv *documents.Invoice, s settings.CompanySettings) (Result, error) {
	if inv == nil {
		return Result{}, errors.New("ledger: invoice required")
	}
	if inv.IsPosted {
		return Result{}, &AlreadyPostedError{Reference: ReferenceInvoice, ID: inv.ID, Number: inv.Number}
	}
	if inv.Status == documents.InvoiceCancelled {
		return Result{}, ErrDocumentCancelled
	}
	legs, err := InvoiceLegs(*inv)
	if err != nil {
		return Result{}, err
	}
	res, err := e.post(ctx, tx, voucherHeader{
		ref:      ReferenceInvoice,
		id:       inv.ID,
		number:   inv.Number,
		date:     inv.Date,
		clientID: inv.ClientID,
		vendorID: inv.VendorID,
		branchID: branchRef(inv.BranchID),
	}, legs, s)
	if err != nil {
		return Result{}, err
	}
	if err := tx.SetPosted(ctx, ReferenceInvoice, inv.ID, true); err != nil {
		return Result{}, err
	}
	inv.IsPosted = true
	return res, nil
}

// ReverseInvoicePosting mirrors the invoice's open voucher and clears its posted flag.
func (e *Engine) ReverseInvoicePosting(ctx context.Context, tx Tx, inv *documents.Invoice, s settings.CompanySettings) (Result, error) {
	if inv == nil {
		return Result{}, errors.New("ledger: invoice required")
	}
	if !inv.IsPosted {
		return Result{}, &NotPostedError{Reference: ReferenceInvoice, ID: inv.ID, Number: inv.Number}
	}
	res, err := e.reverse(ctx, tx, ReferenceInvoice, inv.ID, s)
	if err != nil {
		return Result{}, err
	}
	if err := tx.SetPosted(ctx, ReferenceInvoice, inv.ID, false); err != nil {
		return Result{}, err
	}
	inv.IsPosted = false
	return res, nil
}

// PostPayment writes the payment voucher and marks the payment posted.
func (e *Engine) PostPayment(ctx context.Context, tx Tx, p *documents.Payment, s settings.CompanySettings) (Result, error) {
	if p == nil {
		return Result{}, errors.New("ledger: payment required")
	}
	if p.IsPosted {
		return Result{}, &AlreadyPostedError{Reference: ReferencePayment, ID: p.ID, Number: p.Number}
	}
	if p.Status == documents.PaymentCancelled {
		return Result{}, ErrDocumentCancelled
	}
	legs, err := PaymentLegs(*p)
	if err != nil {
		return Result{}, err
	}
	res, err := e.post(ctx, tx, voucherHeader{
		ref:      ReferencePayment,
		id:       p.ID,
		number:   p.Number,
		date:     p.Date,
		clientID: p.ClientID,
		vendorID: p.VendorID,
		branchID: branchRef(p.BranchID),
	}, legs, s)
	if err != nil {
		return Result{}, err
	}
	if err := tx.SetPosted(ctx, ReferencePayment, p.ID, true); err != nil {
		return Result{}, err
	}
	p.IsPosted = true
	return res, nil
}

// ReversePaymentPosting mirrors the payment's open voucher and clears its posted flag.
func (e *Engine) ReversePaymentPosting(ctx context.Context, tx Tx, p *documents.Payment, s settings.CompanySettings) (Result, error) {
	if p == nil {
		return Result{}, errors.New("ledger: payment required")
	}
	if !p.IsPosted {
		return Result{}, &NotPostedError{Reference: ReferencePayment, ID: p.ID, Number: p.Number}
	}
	res, err := e.reverse(ctx, tx, ReferencePayment, p.ID, s)
	if err != nil {
		return Result{}, err
	}
	if err := tx.SetPosted(ctx, ReferencePayment, p.ID, false); err != nil {
		return Result{}, err
	}
	p.IsPosted = false
	return res, nil
}

func (e *Engine) post(ctx context.Context, tx Tx, h voucherHeader, legs []Leg, s settings.CompanySettings) (Result, error) {
	registry := s.Registry()
	var (
		resolved []Leg
		ids      []int64
		skipped  []SkippedLeg
		missing  []coa.DefaultAccount
	)
	for _, leg := range legs {
		id, err := registry.Resolve(leg.Role)
		if err != nil {
			missing = append(missing, leg.Role)
			skipped = append(skipped, SkippedLeg{Role: leg.Role, Side: leg.Side, Amount: leg.Amount, Narration: leg.Narration})
			continue
		}
		resolved = append(resolved, leg)
		ids = append(ids, id)
	}

	if len(missing) > 0 {
		if s.Policy() == settings.PolicyStrict {
			e.record(func(r Recorder) { r.PostingFailed(h.ref, "missing_default_account") })
			return Result{}, &coa.MissingDefaultAccountError{Keys: registry.Missing(missing...)}
		}
		for _, sk := range skipped {
			e.logger.WarnContext(ctx, "ledger leg skipped, default account not configured",
				slog.String("reference", string(h.ref)),
				slog.Int64("reference_id", h.id),
				slog.String("role", string(sk.Role)),
				slog.String("amount", sk.Amount.StringFixed(2)),
			)
			role := sk.Role
			e.record(func(r Recorder) { r.LegSkipped(role) })
		}
	}

	res := Result{Skipped: skipped}
	if len(resolved) == 0 {
		return res, nil
	}

	if !legsBalanced(resolved) {
		if s.Policy() == settings.PolicyStrict {
			e.record(func(r Recorder) { r.PostingFailed(h.ref, "unbalanced") })
			return Result{}, fmt.Errorf("%w: %s %s", ErrUnbalancedVoucher, h.ref, h.number)
		}
		e.logger.WarnContext(ctx, "posting unbalanced voucher",
			slog.String("reference", string(h.ref)),
			slog.Int64("reference_id", h.id),
		)
	}

	date := dateOnly(h.date)
	fy := fiscal.FinancialYear(date, s.FYStartMonth())
	number, err := numbering.NewService(tx).Next(ctx, h.ref.VoucherPrefix(), fy)
	if err != nil {
		return Result{}, err
	}
	voucherID := voucherUUID(h.ref, h.id, number)
	entries := make([]Entry, len(resolved))
	for i, leg := range resolved {
		entries[i] = Entry{
			VoucherID:     voucherID,
			VoucherNumber: number,
			EntryDate:     date,
			FinancialYear: fy,
			AccountID:     ids[i],
			Debit:         decimal.Zero,
			Credit:        decimal.Zero,
			ReferenceType: h.ref,
			ReferenceID:   h.id,
			Narration:     leg.Narration,
			ClientID:      h.clientID,
			VendorID:      h.vendorID,
			BranchID:      h.branchID,
		}
		if leg.Side == SideDebit {
			entries[i].Debit = leg.Amount
		} else {
			entries[i].Credit = leg.Amount
		}
	}
	if err := tx.InsertEntries(ctx, entries); err != nil {
		return Result{}, fmt.Errorf("ledger: insert %s: %w", number, err)
	}
	res.VoucherNumber = number
	res.FinancialYear = fy
	res.Entries = entries
	e.record(func(r Recorder) { r.VoucherPosted(h.ref, false) })
	e.logger.InfoContext(ctx, "voucher posted",
		slog.String("voucher", number),
		slog.String("reference", string(h.ref)),
		slog.Int64("reference_id", h.id),
		slog.Int("lines", len(entries)),
	)
	return res, nil
}

func (e *Engine) reverse(ctx context.Context, tx Tx, ref ReferenceType, id int64, s settings.CompanySettings) (Result, error) {
	existing, err := tx.ListEntriesByReference(ctx, ref, id)
	if err != nil {
		return Result{}, err
	}
	open := openEntries(existing)
	if len(open) == 0 {
		return Result{}, nil
	}
	// Reversals belong to the period they are made in, not the document's.
	date := dateOnly(e.now())
	fy := fiscal.FinancialYear(date, s.FYStartMonth())
	number, err := numbering.NewService(tx).Next(ctx, ref.VoucherPrefix(), fy)
	if err != nil {
		return Result{}, err
	}
	voucherID := voucherUUID(ref, id, number)
	entries := make([]Entry, len(open))
	for i, orig := range open {
		entries[i] = Entry{
			VoucherID:     voucherID,
			VoucherNumber: number,
			EntryDate:     date,
			FinancialYear: fy,
			AccountID:     orig.AccountID,
			Debit:         orig.Credit,
			Credit:        orig.Debit,
			ReferenceType: ref,
			ReferenceID:   id,
			ReversalOf:    orig.VoucherNumber,
			Narration:     "Reversal: " + orig.Narration,
			ClientID:      orig.ClientID,
			VendorID:      orig.VendorID,
			BranchID:      orig.BranchID,
		}
	}
	if err := tx.InsertEntries(ctx, entries); err != nil {
		return Result{}, fmt.Errorf("ledger: insert reversal %s: %w", number, err)
	}
	e.record(func(r Recorder) { r.VoucherPosted(ref, true) })
	e.logger.InfoContext(ctx, "voucher reversed",
		slog.String("voucher", number),
		slog.String("reference", string(ref)),
		slog.Int64("reference_id", id),
	)
	return Result{VoucherNumber: number, FinancialYear: fy, Entries: entries}, nil
}

// openEntries returns forward entries whose voucher has not been reversed yet.
func openEntries(entries []Entry) []Entry {
	reversed := make(map[string]bool)
	for _, e := range entries {
		if e.ReversalOf != "" {
			reversed[e.ReversalOf] = true
		}
	}
	var open []Entry
	for _, e := range entries {
		if e.ReversalOf == "" && !reversed[e.VoucherNumber] {
			open = append(open, e)
		}
	}
	return open
}

func legsBalanced(legs []Leg) bool {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range legs {
		if l.Side == SideDebit {
			debit = debit.Add(l.Amount)
		} else {
			credit = credit.Add(l.Amount)
		}
	}
	return debit.Equal(credit)
}

func (e *Engine) record(fn func(Recorder)) {
	if e.recorder != nil {
		fn(e.recorder)
	}
}

func voucherUUID(ref ReferenceType, id int64, number string) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d:%s", ref, id, number)))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func branchRef(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
