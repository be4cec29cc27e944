package invoicing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/testing/memstore"
)

type memRepo struct{ *memstore.Store }

func (r memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.Store.WithTx(ctx, func(ctx context.Context, tx *memstore.Tx) error {
		return fn(ctx, tx)
	})
}

type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (r *recordingEnqueuer) EnqueuePaymentPosting(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.ids = append(r.ids, id)
	return nil
}

type fixture struct {
	svc      *Service
	store    *memstore.Store
	settings settings.CompanySettings
	enqueuer *recordingEnqueuer
}

var testDate = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	var defaults map[coa.DefaultAccount]int64
	require.NoError(t, store.WithTx(context.Background(), func(ctx context.Context, tx *memstore.Tx) error {
		var err error
		defaults, err = coa.Seed(ctx, tx)
		return err
	}))
	st := settings.Defaults()
	st.DefaultAccounts = defaults

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := ledger.NewEngine(logger)
	engine.WithNow(func() time.Time { return testDate.AddDate(0, 0, 10) })
	enq := &recordingEnqueuer{}
	svc := NewService(memRepo{store}, engine, nil, enq, logger)
	svc.WithNow(func() time.Time { return testDate })
	return &fixture{svc: svc, store: store, settings: st, enqueuer: enq}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func int64p(v int64) *int64 { return &v }

func salesInput(clientPO *int64) CreateInvoiceInput {
	return CreateInvoiceInput{
		Type:       documents.InvoiceSales,
		Date:       testDate,
		ClientID:   int64p(7),
		BranchID:   1,
		ClientPOID: clientPO,
		Items: []LineInput{{
			Description: "Consulting",
			HSNSAC:      "998311",
			Quantity:    d("2"),
			Rate:        d("500"),
			GSTRate:     d("18"),
		}},
	}
}

func sums(entries []ledger.Entry) (decimal.Decimal, decimal.Decimal) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, e := range entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

func TestCreateInvoicePostsOnCreate(t *testing.T) {
	f := newFixture(t)
	f.settings.LedgerPostingOn = settings.PostOnCreate

	inv, err := f.svc.CreateInvoice(context.Background(), f.settings, salesInput(nil))
	require.NoError(t, err)
	require.Equal(t, "INV/2024-25/0001", inv.Number)
	require.Equal(t, documents.InvoiceDraft, inv.Status)
	require.True(t, inv.TotalAmount.Equal(d("1180")))
	require.True(t, inv.CGSTAmount.Equal(d("90")))
	require.True(t, inv.AmountDue.Equal(d("1180")))
	require.True(t, inv.IsPosted)

	entries := f.store.Entries()
	require.Len(t, entries, 4)
	debit, credit := sums(entries)
	require.True(t, debit.Equal(d("1180")))
	require.True(t, debit.Equal(credit))
	require.Equal(t, "JV-INV/2024-25/0001", entries[0].VoucherNumber)

	stored, ok := f.store.Invoice(inv.ID)
	require.True(t, ok)
	require.True(t, stored.IsPosted)
}

func TestSendInvoicePostsOnSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, f.settings, salesInput(nil))
	require.NoError(t, err)
	require.False(t, inv.IsPosted)
	require.Empty(t, f.store.Entries())

	sent, err := f.svc.SendInvoice(ctx, f.settings, inv.ID)
	require.NoError(t, err)
	require.Equal(t, documents.InvoiceSent, sent.Status)
	require.True(t, sent.IsPosted)
	require.Len(t, f.store.Entries(), 4)

	_, err = f.svc.SendInvoice(ctx, f.settings, inv.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.PostInvoice(ctx, f.settings, inv.ID)
	require.ErrorIs(t, err, ledger.ErrAlreadyPosted)
	require.Len(t, f.store.Entries(), 4)
}

func TestCreateInvoiceStrictPolicyWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.settings.LedgerPostingOn = settings.PostOnCreate
	configured := f.settings.DefaultAccounts
	f.settings.DefaultAccounts = map[coa.DefaultAccount]int64{}

	_, err := f.svc.CreateInvoice(context.Background(), f.settings, salesInput(nil))
	require.ErrorIs(t, err, coa.ErrMissingDefaultAccount)
	require.Empty(t, f.store.Entries())

	f.settings.DefaultAccounts = configured
	inv, err := f.svc.CreateInvoice(context.Background(), f.settings, salesInput(nil))
	require.NoError(t, err)
	require.Equal(t, "INV/2024-25/0001", inv.Number)
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture(t)
	in := salesInput(nil)
	in.Items = nil
	_, err := f.svc.CreateInvoice(context.Background(), f.settings, in)
	require.ErrorIs(t, err, ErrInvalidInput)

	in = salesInput(nil)
	in.ClientID = nil
	_, err = f.svc.CreateInvoice(context.Background(), f.settings, in)
	require.ErrorIs(t, err, ErrInvalidInput)

	in = salesInput(nil)
	in.Items[0].Quantity = decimal.Zero
	_, err = f.svc.CreateInvoice(context.Background(), f.settings, in)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCancelInvoiceReversesAndRecomputesPO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.store.PutClientPO(billing.ClientPO{
		ClientID:        7,
		BranchID:        1,
		Status:          billing.ClientPOActive,
		TotalAmount:     d("2360"),
		RemainingAmount: d("2360"),
	})

	inv, err := f.svc.CreateInvoice(ctx, f.settings, salesInput(&po.ID))
	require.NoError(t, err)
	got, _ := f.store.ClientPO(po.ID)
	require.Equal(t, billing.ClientPOPartial, got.Status)
	require.True(t, got.InvoicedAmount.Equal(d("1180")))

	_, err = f.svc.SendInvoice(ctx, f.settings, inv.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelInvoice(ctx, f.settings, inv.ID)
	require.NoError(t, err)
	require.Equal(t, documents.InvoiceCancelled, cancelled.Status)
	require.False(t, cancelled.IsPosted)

	entries := f.store.Entries()
	require.Len(t, entries, 8)
	perAccount := map[int64]decimal.Decimal{}
	for _, e := range entries {
		perAccount[e.AccountID] = perAccount[e.AccountID].Add(e.Debit).Sub(e.Credit)
	}
	for account, balance := range perAccount {
		require.Truef(t, balance.IsZero(), "account %d not cleared", account)
	}
	for _, e := range entries[4:] {
		require.Equal(t, "JV-INV/2024-25/0001", e.ReversalOf)
		require.Equal(t, "JV-INV/2024-25/0002", e.VoucherNumber)
	}

	got, _ = f.store.ClientPO(po.ID)
	require.Equal(t, billing.ClientPOActive, got.Status)
	require.True(t, got.InvoicedAmount.IsZero())

	_, err = f.svc.CancelInvoice(ctx, f.settings, inv.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.SendInvoice(ctx, f.settings, inv.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func sentInvoice(t *testing.T, f *fixture) documents.Invoice {
	t.Helper()
	inv, err := f.svc.CreateInvoice(context.Background(), f.settings, salesInput(nil))
	require.NoError(t, err)
	inv, err = f.svc.SendInvoice(context.Background(), f.settings, inv.ID)
	require.NoError(t, err)
	return inv
}

func receipt(invoiceID int64, gross string) CreatePaymentInput {
	return CreatePaymentInput{
		Type:        documents.PaymentReceipt,
		Mode:        documents.ModeNEFT,
		Date:        testDate,
		ClientID:    int64p(7),
		BranchID:    1,
		InvoiceID:   &invoiceID,
		GrossAmount: d(gross),
	}
}

func TestCreatePaymentAppliesAndPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := sentInvoice(t, f)

	out, err := f.svc.CreatePayment(ctx, f.settings, receipt(inv.ID, "500"))
	require.NoError(t, err)
	require.Equal(t, "REC/2024-25/0001", out.Payment.Number)
	require.True(t, out.Payment.NetAmount.Equal(d("500")))
	require.True(t, out.Payment.IsPosted)
	require.NotNil(t, out.Posting)
	require.Equal(t, "JV-PAY/2024-25/0001", out.Posting.VoucherNumber)
	require.True(t, out.Posting.Balanced())

	stored, _ := f.store.Invoice(inv.ID)
	require.Equal(t, documents.InvoicePartial, stored.Status)
	require.True(t, stored.AmountDue.Equal(d("680")))

	_, err = f.svc.CreatePayment(ctx, f.settings, receipt(inv.ID, "680"))
	require.NoError(t, err)
	stored, _ = f.store.Invoice(inv.ID)
	require.Equal(t, documents.InvoicePaid, stored.Status)
	require.True(t, stored.AmountDue.IsZero())

	_, err = f.svc.CancelInvoice(ctx, f.settings, inv.ID)
	require.ErrorIs(t, err, ErrInvoiceHasPayments)
}

func TestCreatePaymentPostingDeferred(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := sentInvoice(t, f)

	f.store.FailInsertEntries = errors.New("disk full")
	out, err := f.svc.CreatePayment(ctx, f.settings, receipt(inv.ID, "1180"))
	require.ErrorIs(t, err, ErrPaymentPostingDeferred)
	var deferred *PaymentPostingDeferredError
	require.True(t, errors.As(err, &deferred))
	require.True(t, deferred.Enqueued)
	require.Equal(t, out.Payment.ID, deferred.PaymentID)
	require.Nil(t, out.Posting)
	require.Equal(t, []int64{out.Payment.ID}, f.enqueuer.ids)

	p, ok := f.store.Payment(out.Payment.ID)
	require.True(t, ok)
	require.False(t, p.IsPosted)
	stored, _ := f.store.Invoice(inv.ID)
	require.Equal(t, documents.InvoicePaid, stored.Status)

	f.store.FailInsertEntries = nil
	require.NoError(t, f.svc.RetryPaymentPosting(ctx, f.settings, p.ID))
	p, _ = f.store.Payment(p.ID)
	require.True(t, p.IsPosted)
	require.Len(t, f.store.Entries(), 6)

	require.NoError(t, f.svc.RetryPaymentPosting(ctx, f.settings, p.ID))
	require.Len(t, f.store.Entries(), 6)
}

func TestCreatePaymentEnqueueFailureStillReportsDeferral(t *testing.T) {
	f := newFixture(t)
	f.enqueuer.err = errors.New("redis down")
	f.store.FailInsertEntries = errors.New("disk full")

	out, err := f.svc.CreatePayment(context.Background(), f.settings, CreatePaymentInput{
		Type:        documents.PaymentReceipt,
		Mode:        documents.ModeCash,
		Date:        testDate,
		ClientID:    int64p(7),
		BranchID:    1,
		GrossAmount: d("100"),
	})
	var deferred *PaymentPostingDeferredError
	require.True(t, errors.As(err, &deferred))
	require.False(t, deferred.Enqueued)
	_, ok := f.store.Payment(out.Payment.ID)
	require.True(t, ok)
}

func TestCreatePaymentPartyMismatch(t *testing.T) {
	f := newFixture(t)
	inv := sentInvoice(t, f)

	_, err := f.svc.CreatePayment(context.Background(), f.settings, CreatePaymentInput{
		Type:        documents.PaymentMade,
		Mode:        documents.ModeBankTransfer,
		Date:        testDate,
		VendorID:    int64p(3),
		BranchID:    1,
		InvoiceID:   &inv.ID,
		GrossAmount: d("100"),
	})
	require.ErrorIs(t, err, ErrPartyMismatch)
	stored, _ := f.store.Invoice(inv.ID)
	require.True(t, stored.AmountPaid.IsZero())
}

func TestCancelPaymentRevertsInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := sentInvoice(t, f)

	out, err := f.svc.CreatePayment(ctx, f.settings, receipt(inv.ID, "1180"))
	require.NoError(t, err)

	p, err := f.svc.CancelPayment(ctx, f.settings, out.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, documents.PaymentCancelled, p.Status)
	require.False(t, p.IsPosted)

	stored, _ := f.store.Invoice(inv.ID)
	require.Equal(t, documents.InvoiceSent, stored.Status)
	require.True(t, stored.AmountPaid.IsZero())
	require.True(t, stored.AmountDue.Equal(d("1180")))

	debit, credit := sums(f.store.Entries())
	require.True(t, debit.Equal(credit))

	_, err = f.svc.CancelPayment(ctx, f.settings, out.Payment.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, f.svc.RetryPaymentPosting(ctx, f.settings, out.Payment.ID))
}

func TestConvertProforma(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pi, err := f.svc.CreateProforma(ctx, f.settings, CreateProformaInput{
		Date:     testDate,
		ClientID: 7,
		BranchID: 1,
		Items: []LineInput{{
			Description: "Retainer",
			Quantity:    d("1"),
			Rate:        d("1000"),
			GSTRate:     d("18"),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "PI/2024-25/0001", pi.Number)
	require.Empty(t, f.store.Entries())

	inv, err := f.svc.ConvertProforma(ctx, f.settings, pi.ID, time.Time{})
	require.NoError(t, err)
	require.Equal(t, documents.InvoiceSales, inv.Type)
	require.Equal(t, "INV/2024-25/0001", inv.Number)
	require.Equal(t, pi.ID, *inv.ProformaID)
	require.True(t, inv.TotalAmount.Equal(pi.TotalAmount))

	stored, _ := f.store.Proforma(pi.ID)
	require.Equal(t, documents.ProformaGenerated, stored.Status)
	require.Equal(t, inv.ID, *stored.InvoiceID)

	_, err = f.svc.ConvertProforma(ctx, f.settings, pi.ID, testDate)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func putSchedule(t *testing.T, f *fixture, po billing.ClientPO, amount, gst string) billing.BillingSchedule {
	t.Helper()
	var out []billing.BillingSchedule
	require.NoError(t, f.store.WithTx(context.Background(), func(ctx context.Context, tx *memstore.Tx) error {
		var err error
		out, err = tx.InsertSchedules(ctx, []billing.BillingSchedule{{
			ClientPOID:        po.ID,
			InstallmentNumber: 1,
			Description:       "Monthly - June 2024",
			DueDate:           testDate,
			Amount:            d(amount),
			GSTAmount:         d(gst),
			TotalAmount:       d(amount).Add(d(gst)),
			Status:            billing.SchedulePending,
		}})
		return err
	}))
	return out[0]
}

func activePO(f *fixture, total string, igst bool) billing.ClientPO {
	return f.store.PutClientPO(billing.ClientPO{
		ClientID:        7,
		BranchID:        1,
		Subject:         "Support",
		IsIGST:          igst,
		Status:          billing.ClientPOActive,
		TotalAmount:     d(total),
		RemainingAmount: d(total),
	})
}

func TestCreateInvoiceFromSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := activePO(f, "2360.02", false)
	sch := putSchedule(t, f, po, "1000", "180.01")

	inv, err := f.svc.CreateInvoiceFromSchedule(ctx, f.settings, sch.ID, FromScheduleInput{Date: testDate})
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	item := inv.Items[0]
	require.True(t, item.Quantity.Equal(d("1")))
	require.True(t, item.Rate.Equal(d("1000")))
	require.True(t, item.GSTRate.Equal(d("18")))
	require.True(t, inv.CGSTAmount.Equal(d("90.01")))
	require.True(t, inv.SGSTAmount.Equal(d("90")))
	require.True(t, inv.TotalAmount.Equal(d("1180.01")))
	require.True(t, inv.RoundOff.IsZero())
	require.Equal(t, sch.ID, *inv.BillingScheduleID)

	stored, _ := f.store.Schedule(sch.ID)
	require.Equal(t, billing.ScheduleInvoiced, stored.Status)
	require.Equal(t, inv.ID, *stored.InvoiceID)
	gotPO, _ := f.store.ClientPO(po.ID)
	require.Equal(t, billing.ClientPOPartial, gotPO.Status)
	require.True(t, gotPO.InvoicedAmount.Equal(d("1180.01")))

	_, err = f.svc.CreateInvoiceFromSchedule(ctx, f.settings, sch.ID, FromScheduleInput{Date: testDate})
	require.ErrorIs(t, err, ErrScheduleNotPending)

	_, err = f.svc.CancelInvoice(ctx, f.settings, inv.ID)
	require.NoError(t, err)
	stored, _ = f.store.Schedule(sch.ID)
	require.Equal(t, billing.SchedulePending, stored.Status)
	require.Nil(t, stored.InvoiceID)
}

func TestCreateInvoiceFromScheduleIGSTWithTDS(t *testing.T) {
	f := newFixture(t)
	po := activePO(f, "11800", true)
	sch := putSchedule(t, f, po, "10000", "1800")

	inv, err := f.svc.CreateInvoiceFromSchedule(context.Background(), f.settings, sch.ID, FromScheduleInput{
		Date:        testDate,
		Withholding: documents.Withholding{TDSApplicable: true, TDSRate: d("10")},
	})
	require.NoError(t, err)
	require.True(t, inv.IGSTAmount.Equal(d("1800")))
	require.True(t, inv.CGSTAmount.IsZero())
	require.True(t, inv.TDSAmount.Equal(d("1000")))
	require.True(t, inv.AmountAfterTDS.Equal(d("10800")))
	gotPO, _ := f.store.ClientPO(po.ID)
	require.Equal(t, billing.ClientPOCompleted, gotPO.Status)
}

func TestProformaFromScheduleThenConvert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := activePO(f, "11800", false)
	sch := putSchedule(t, f, po, "10000", "1800")

	pi, err := f.svc.CreateProformaFromSchedule(ctx, f.settings, sch.ID, FromScheduleInput{})
	require.NoError(t, err)
	require.True(t, pi.TotalAmount.Equal(d("11800")))
	stored, _ := f.store.Schedule(sch.ID)
	require.Equal(t, billing.SchedulePIRaised, stored.Status)
	require.Equal(t, pi.ID, *stored.ProformaID)

	_, err = f.svc.CreateInvoiceFromSchedule(ctx, f.settings, sch.ID, FromScheduleInput{})
	require.ErrorIs(t, err, ErrScheduleNotPending)

	inv, err := f.svc.ConvertProforma(ctx, f.settings, pi.ID, testDate)
	require.NoError(t, err)
	require.True(t, inv.TotalAmount.Equal(d("11800")))
	require.True(t, inv.CGSTAmount.Equal(d("900")))
	stored, _ = f.store.Schedule(sch.ID)
	require.Equal(t, billing.ScheduleInvoiced, stored.Status)
	require.Equal(t, inv.ID, *stored.InvoiceID)
	gotPO, _ := f.store.ClientPO(po.ID)
	require.Equal(t, billing.ClientPOCompleted, gotPO.Status)
}

func TestCancelConvertedInvoiceHandsInstallmentBackToProforma(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := activePO(f, "11800", false)
	sch := putSchedule(t, f, po, "10000", "1800")

	pi, err := f.svc.CreateProformaFromSchedule(ctx, f.settings, sch.ID, FromScheduleInput{})
	require.NoError(t, err)
	inv, err := f.svc.ConvertProforma(ctx, f.settings, pi.ID, testDate)
	require.NoError(t, err)

	_, err = f.svc.CancelInvoice(ctx, f.settings, inv.ID)
	require.NoError(t, err)

	stored, _ := f.store.Schedule(sch.ID)
	require.Equal(t, billing.SchedulePIRaised, stored.Status)
	require.Nil(t, stored.InvoiceID)
	require.NotNil(t, stored.ProformaID)
	require.Equal(t, pi.ID, *stored.ProformaID)

	reopened, _ := f.store.Proforma(pi.ID)
	require.Equal(t, documents.ProformaSent, reopened.Status)
	require.Nil(t, reopened.InvoiceID)

	gotPO, _ := f.store.ClientPO(po.ID)
	require.Equal(t, billing.ClientPOActive, gotPO.Status)
	require.True(t, gotPO.InvoicedAmount.IsZero())

	again, err := f.svc.ConvertProforma(ctx, f.settings, pi.ID, testDate)
	require.NoError(t, err)
	stored, _ = f.store.Schedule(sch.ID)
	require.Equal(t, billing.ScheduleInvoiced, stored.Status)
	require.Equal(t, again.ID, *stored.InvoiceID)
}

func TestPostJournal(t *testing.T) {
	f := newFixture(t)
	cash := f.settings.DefaultAccounts[coa.DefaultCash]
	sales := f.settings.DefaultAccounts[coa.DefaultSales]

	res, err := f.svc.PostJournal(context.Background(), f.settings, ledger.JournalInput{
		Date:      testDate,
		Narration: "Cash sale",
		Lines: []ledger.JournalLine{
			{AccountID: cash, Debit: d("250"), Credit: decimal.Zero},
			{AccountID: sales, Debit: decimal.Zero, Credit: d("250")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "JV/2024-25/0001", res.VoucherNumber)
	require.True(t, res.Balanced())
	require.Len(t, f.store.Entries(), 2)
}
