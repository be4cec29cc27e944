// Package memstore is an in-process implementation of the document, billing
// and ledger ports. Each WithTx works on a copy of the state and commits it
// only when the callback succeeds, so tests observe the same atomicity the
// postgres store gives.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/shared"
)

type seriesKey struct {
	prefix string
	fy     string
}

type state struct {
	counters  map[seriesKey]int64
	entries   []ledger.Entry
	accounts  map[int64]coa.Account
	invoices  map[int64]documents.Invoice
	payments  map[int64]documents.Payment
	proformas map[int64]documents.ProformaInvoice
	pos       map[int64]billing.ClientPO
	schedules map[int64]billing.BillingSchedule
	nextID    int64
}

func (s *state) clone() *state {
	out := &state{
		counters:  make(map[seriesKey]int64, len(s.counters)),
		entries:   append([]ledger.Entry(nil), s.entries...),
		accounts:  make(map[int64]coa.Account, len(s.accounts)),
		invoices:  make(map[int64]documents.Invoice, len(s.invoices)),
		payments:  make(map[int64]documents.Payment, len(s.payments)),
		proformas: make(map[int64]documents.ProformaInvoice, len(s.proformas)),
		pos:       make(map[int64]billing.ClientPO, len(s.pos)),
		schedules: make(map[int64]billing.BillingSchedule, len(s.schedules)),
		nextID:    s.nextID,
	}
	for k, v := range s.counters {
		out.counters[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.invoices {
		out.invoices[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	for k, v := range s.proformas {
		out.proformas[k] = v
	}
	for k, v := range s.pos {
		out.pos[k] = v
	}
	for k, v := range s.schedules {
		out.schedules[k] = v
	}
	return out
}

// Store holds committed state. Transactions are serialised.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time

	// FailInsertEntries, when set, makes every InsertEntries call fail.
	FailInsertEntries error
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		state: (&state{}).clone(),
		now:   time.Now,
	}
}

// WithTx runs fn against a working copy and commits it when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &Tx{store: s, st: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

func (s *Store) read(fn func(*state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// PutAccount stores an account and returns it with its id.
func (s *Store) PutAccount(a coa.Account) coa.Account {
	var out coa.Account
	_ = s.WithTx(context.Background(), func(ctx context.Context, tx *Tx) error {
		var err error
		out, err = tx.InsertAccount(ctx, a)
		return err
	})
	return out
}

// PutClientPO stores a PO and returns it with its id.
func (s *Store) PutClientPO(po billing.ClientPO) billing.ClientPO {
	_ = s.WithTx(context.Background(), func(_ context.Context, tx *Tx) error {
		if po.ID == 0 {
			po.ID = tx.id()
		}
		tx.st.pos[po.ID] = po
		return nil
	})
	return po
}

// ClientPO returns the committed PO.
func (s *Store) ClientPO(id int64) (billing.ClientPO, bool) {
	var (
		po billing.ClientPO
		ok bool
	)
	s.read(func(st *state) { po, ok = st.pos[id] })
	return po, ok
}

// Invoice returns the committed invoice.
func (s *Store) Invoice(id int64) (documents.Invoice, bool) {
	var (
		inv documents.Invoice
		ok  bool
	)
	s.read(func(st *state) { inv, ok = st.invoices[id] })
	return inv, ok
}

// Payment returns the committed payment.
func (s *Store) Payment(id int64) (documents.Payment, bool) {
	var (
		p  documents.Payment
		ok bool
	)
	s.read(func(st *state) { p, ok = st.payments[id] })
	return p, ok
}

// Proforma returns the committed proforma.
func (s *Store) Proforma(id int64) (documents.ProformaInvoice, bool) {
	var (
		pi documents.ProformaInvoice
		ok bool
	)
	s.read(func(st *state) { pi, ok = st.proformas[id] })
	return pi, ok
}

// Schedule returns the committed installment.
func (s *Store) Schedule(id int64) (billing.BillingSchedule, bool) {
	var (
		sch billing.BillingSchedule
		ok  bool
	)
	s.read(func(st *state) { sch, ok = st.schedules[id] })
	return sch, ok
}

// Entries returns every committed ledger entry in insertion order.
func (s *Store) Entries() []ledger.Entry {
	var out []ledger.Entry
	s.read(func(st *state) { out = append(out, st.entries...) })
	return out
}

// UnbalancedVouchers reports committed vouchers whose sides differ.
func (s *Store) UnbalancedVouchers(_ context.Context) ([]ledger.VoucherImbalance, error) {
	return ledger.FindImbalances(s.Entries()), nil
}

// Tx is a working copy of the store.
type Tx struct {
	store *Store
	st    *state
}

func (t *Tx) id() int64 {
	t.st.nextID++
	return t.st.nextID
}

func (t *Tx) stamp() time.Time {
	return t.store.now().UTC()
}

// NextSequence increments the series for prefix and financial year.
func (t *Tx) NextSequence(_ context.Context, prefix, fy string) (int64, error) {
	k := seriesKey{prefix: prefix, fy: fy}
	t.st.counters[k]++
	return t.st.counters[k], nil
}

// InsertEntries appends voucher lines.
func (t *Tx) InsertEntries(_ context.Context, entries []ledger.Entry) error {
	if t.store.FailInsertEntries != nil {
		return t.store.FailInsertEntries
	}
	for _, e := range entries {
		e.ID = t.id()
		e.CreatedAt = t.stamp()
		t.st.entries = append(t.st.entries, e)
	}
	return nil
}

// ListEntriesByReference returns the lines written for one document.
func (t *Tx) ListEntriesByReference(_ context.Context, ref ledger.ReferenceType, id int64) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range t.st.entries {
		if e.ReferenceType == ref && e.ReferenceID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// SetPosted flips the posted flag of an invoice or payment.
func (t *Tx) SetPosted(_ context.Context, ref ledger.ReferenceType, id int64, posted bool) error {
	switch ref {
	case ledger.ReferenceInvoice:
		inv, ok := t.st.invoices[id]
		if !ok {
			return shared.NotFound("invoice", id)
		}
		inv.IsPosted = posted
		t.st.invoices[id] = inv
	case ledger.ReferencePayment:
		p, ok := t.st.payments[id]
		if !ok {
			return shared.NotFound("payment", id)
		}
		p.IsPosted = posted
		t.st.payments[id] = p
	default:
		return fmt.Errorf("memstore: %s has no posted flag", ref)
	}
	return nil
}

// GetAccount loads an account by id.
func (t *Tx) GetAccount(_ context.Context, id int64) (coa.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok {
		return coa.Account{}, shared.NotFound("account", id)
	}
	return a, nil
}

// GetAccountByCode loads an account by code.
func (t *Tx) GetAccountByCode(_ context.Context, code string) (coa.Account, error) {
	for _, a := range t.st.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return coa.Account{}, shared.ErrNotFound
}

// InsertAccount stores a new account.
func (t *Tx) InsertAccount(_ context.Context, a coa.Account) (coa.Account, error) {
	for _, existing := range t.st.accounts {
		if existing.Code == a.Code {
			return coa.Account{}, fmt.Errorf("memstore: account code %s exists", a.Code)
		}
	}
	if a.ID == 0 {
		a.ID = t.id()
	}
	a.CreatedAt = t.stamp()
	a.UpdatedAt = a.CreatedAt
	t.st.accounts[a.ID] = a
	return a, nil
}

// InsertInvoice stores a new invoice and assigns its id.
func (t *Tx) InsertInvoice(_ context.Context, inv *documents.Invoice) error {
	if inv.Number != "" {
		for _, existing := range t.st.invoices {
			if existing.Number == inv.Number {
				return fmt.Errorf("memstore: duplicate invoice number %s", inv.Number)
			}
		}
	}
	inv.ID = t.id()
	inv.CreatedAt = t.stamp()
	inv.UpdatedAt = inv.CreatedAt
	for i := range inv.Items {
		inv.Items[i].ID = t.id()
	}
	t.st.invoices[inv.ID] = *inv
	return nil
}

// GetInvoiceForUpdate loads an invoice.
func (t *Tx) GetInvoiceForUpdate(_ context.Context, id int64) (documents.Invoice, error) {
	inv, ok := t.st.invoices[id]
	if !ok {
		return documents.Invoice{}, shared.NotFound("invoice", id)
	}
	return inv, nil
}

// UpdateInvoiceState stores status and payment amounts.
func (t *Tx) UpdateInvoiceState(_ context.Context, inv documents.Invoice) error {
	cur, ok := t.st.invoices[inv.ID]
	if !ok {
		return shared.NotFound("invoice", inv.ID)
	}
	cur.Status = inv.Status
	cur.AmountPaid = inv.AmountPaid
	cur.AmountDue = inv.AmountDue
	cur.UpdatedAt = t.stamp()
	t.st.invoices[inv.ID] = cur
	return nil
}

// ListInvoicesByClientPO returns invoices linked to a PO.
func (t *Tx) ListInvoicesByClientPO(_ context.Context, poID int64) ([]documents.Invoice, error) {
	var out []documents.Invoice
	for _, inv := range t.st.invoices {
		if inv.ClientPOID != nil && *inv.ClientPOID == poID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertPayment stores a new payment and assigns its id.
func (t *Tx) InsertPayment(_ context.Context, p *documents.Payment) error {
	p.ID = t.id()
	p.CreatedAt = t.stamp()
	p.UpdatedAt = p.CreatedAt
	t.st.payments[p.ID] = *p
	return nil
}

// GetPaymentForUpdate loads a payment.
func (t *Tx) GetPaymentForUpdate(_ context.Context, id int64) (documents.Payment, error) {
	p, ok := t.st.payments[id]
	if !ok {
		return documents.Payment{}, shared.NotFound("payment", id)
	}
	return p, nil
}

// UpdatePaymentStatus stores a payment status.
func (t *Tx) UpdatePaymentStatus(_ context.Context, id int64, status documents.PaymentStatus) error {
	p, ok := t.st.payments[id]
	if !ok {
		return shared.NotFound("payment", id)
	}
	p.Status = status
	p.UpdatedAt = t.stamp()
	t.st.payments[id] = p
	return nil
}

// InsertProforma stores a new proforma and assigns its id.
func (t *Tx) InsertProforma(_ context.Context, pi *documents.ProformaInvoice) error {
	pi.ID = t.id()
	pi.CreatedAt = t.stamp()
	pi.UpdatedAt = pi.CreatedAt
	for i := range pi.Items {
		pi.Items[i].ID = t.id()
	}
	t.st.proformas[pi.ID] = *pi
	return nil
}

// GetProformaForUpdate loads a proforma.
func (t *Tx) GetProformaForUpdate(_ context.Context, id int64) (documents.ProformaInvoice, error) {
	pi, ok := t.st.proformas[id]
	if !ok {
		return documents.ProformaInvoice{}, shared.NotFound("proforma invoice", id)
	}
	return pi, nil
}

// UpdateProformaState stores status and the generated invoice link.
func (t *Tx) UpdateProformaState(_ context.Context, pi documents.ProformaInvoice) error {
	cur, ok := t.st.proformas[pi.ID]
	if !ok {
		return shared.NotFound("proforma invoice", pi.ID)
	}
	cur.Status = pi.Status
	cur.InvoiceID = pi.InvoiceID
	cur.UpdatedAt = t.stamp()
	t.st.proformas[pi.ID] = cur
	return nil
}

// InsertClientPO stores a PO and assigns ids to it and its items.
func (t *Tx) InsertClientPO(_ context.Context, po billing.ClientPO) (billing.ClientPO, error) {
	for _, cur := range t.st.pos {
		if cur.InternalNumber != "" && cur.InternalNumber == po.InternalNumber {
			return billing.ClientPO{}, fmt.Errorf("memstore: client PO %s exists", po.InternalNumber)
		}
	}
	po.ID = t.id()
	po.Items = append([]billing.ClientPOItem(nil), po.Items...)
	for i := range po.Items {
		po.Items[i].ID = t.id()
	}
	po.CreatedAt = t.stamp()
	po.UpdatedAt = po.CreatedAt
	t.st.pos[po.ID] = po
	return po, nil
}

// GetClientPOForUpdate loads a PO.
func (t *Tx) GetClientPOForUpdate(_ context.Context, id int64) (billing.ClientPO, error) {
	po, ok := t.st.pos[id]
	if !ok {
		return billing.ClientPO{}, shared.NotFound("client PO", id)
	}
	return po, nil
}

// UpdateClientPOFulfillment stores invoiced, remaining and status.
func (t *Tx) UpdateClientPOFulfillment(_ context.Context, po billing.ClientPO) error {
	cur, ok := t.st.pos[po.ID]
	if !ok {
		return shared.NotFound("client PO", po.ID)
	}
	cur.InvoicedAmount = po.InvoicedAmount
	cur.RemainingAmount = po.RemainingAmount
	cur.Status = po.Status
	cur.UpdatedAt = t.stamp()
	t.st.pos[po.ID] = cur
	return nil
}

// ListSchedules returns a PO's installments ordered by number.
func (t *Tx) ListSchedules(_ context.Context, poID int64) ([]billing.BillingSchedule, error) {
	var out []billing.BillingSchedule
	for _, sch := range t.st.schedules {
		if sch.ClientPOID == poID {
			out = append(out, sch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstallmentNumber < out[j].InstallmentNumber })
	return out, nil
}

// DeletePendingSchedules removes a PO's PENDING installments.
func (t *Tx) DeletePendingSchedules(_ context.Context, poID int64) error {
	for id, sch := range t.st.schedules {
		if sch.ClientPOID == poID && sch.Status == billing.SchedulePending {
			delete(t.st.schedules, id)
		}
	}
	return nil
}

// InsertSchedules stores installments and returns them with ids.
func (t *Tx) InsertSchedules(_ context.Context, schedules []billing.BillingSchedule) ([]billing.BillingSchedule, error) {
	out := make([]billing.BillingSchedule, len(schedules))
	for i, sch := range schedules {
		for _, existing := range t.st.schedules {
			if existing.ClientPOID == sch.ClientPOID && existing.InstallmentNumber == sch.InstallmentNumber {
				return nil, fmt.Errorf("memstore: installment %d exists for PO %d", sch.InstallmentNumber, sch.ClientPOID)
			}
		}
		sch.ID = t.id()
		sch.CreatedAt = t.stamp()
		sch.UpdatedAt = sch.CreatedAt
		t.st.schedules[sch.ID] = sch
		out[i] = sch
	}
	return out, nil
}

// GetScheduleForUpdate loads an installment.
func (t *Tx) GetScheduleForUpdate(_ context.Context, id int64) (billing.BillingSchedule, error) {
	sch, ok := t.st.schedules[id]
	if !ok {
		return billing.BillingSchedule{}, shared.NotFound("billing schedule", id)
	}
	return sch, nil
}

// UpdateSchedule stores an installment.
func (t *Tx) UpdateSchedule(_ context.Context, sch billing.BillingSchedule) error {
	if _, ok := t.st.schedules[sch.ID]; !ok {
		return shared.NotFound("billing schedule", sch.ID)
	}
	sch.UpdatedAt = t.stamp()
	t.st.schedules[sch.ID] = sch
	return nil
}

// DeleteSchedule removes an installment.
func (t *Tx) DeleteSchedule(_ context.Context, id int64) error {
	if _, ok := t.st.schedules[id]; !ok {
		return shared.NotFound("billing schedule", id)
	}
	delete(t.st.schedules, id)
	return nil
}
