package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/shared"
)

type stubRepo struct {
	tx *stubTx
}

func (r *stubRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := append([]BillingSchedule(nil), r.tx.schedules...)
	if err := fn(ctx, r.tx); err != nil {
		r.tx.schedules = snapshot
		return err
	}
	return nil
}

type stubTx struct {
	po        ClientPO
	schedules []BillingSchedule
	nextID    int64
	inserted  []ClientPO
	series    map[string]int64
}

func (s *stubTx) NextSequence(_ context.Context, prefix, fy string) (int64, error) {
	if s.series == nil {
		s.series = map[string]int64{}
	}
	s.series[prefix+"/"+fy]++
	return s.series[prefix+"/"+fy], nil
}

func (s *stubTx) InsertClientPO(_ context.Context, po ClientPO) (ClientPO, error) {
	s.nextID++
	po.ID = s.nextID
	s.inserted = append(s.inserted, po)
	return po, nil
}

func (s *stubTx) GetClientPOForUpdate(_ context.Context, id int64) (ClientPO, error) {
	if id != s.po.ID {
		return ClientPO{}, shared.NotFound("client_po", id)
	}
	return s.po, nil
}

func (s *stubTx) ListSchedules(_ context.Context, poID int64) ([]BillingSchedule, error) {
	var out []BillingSchedule
	for _, sch := range s.schedules {
		if sch.ClientPOID == poID {
			out = append(out, sch)
		}
	}
	return out, nil
}

func (s *stubTx) DeletePendingSchedules(_ context.Context, poID int64) error {
	kept := s.schedules[:0:0]
	for _, sch := range s.schedules {
		if sch.ClientPOID == poID && sch.Status == SchedulePending {
			continue
		}
		kept = append(kept, sch)
	}
	s.schedules = kept
	return nil
}

func (s *stubTx) InsertSchedules(_ context.Context, schedules []BillingSchedule) ([]BillingSchedule, error) {
	out := make([]BillingSchedule, len(schedules))
	for i, sch := range schedules {
		s.nextID++
		sch.ID = s.nextID
		out[i] = sch
		s.schedules = append(s.schedules, sch)
	}
	return out, nil
}

func (s *stubTx) GetScheduleForUpdate(_ context.Context, id int64) (BillingSchedule, error) {
	for _, sch := range s.schedules {
		if sch.ID == id {
			return sch, nil
		}
	}
	return BillingSchedule{}, shared.NotFound("billing_schedule", id)
}

func (s *stubTx) UpdateSchedule(_ context.Context, schedule BillingSchedule) error {
	for i, sch := range s.schedules {
		if sch.ID == schedule.ID {
			s.schedules[i] = schedule
		}
	}
	return nil
}

func (s *stubTx) DeleteSchedule(_ context.Context, id int64) error {
	for i, sch := range s.schedules {
		if sch.ID == id {
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			return nil
		}
	}
	return nil
}

func newPO() ClientPO {
	from := day(2025, time.April, 1)
	until := day(2026, time.April, 1)
	return ClientPO{
		ID:            1,
		ClientID:      9,
		Frequency:     FrequencyMonthly,
		Status:        ClientPOActive,
		ValidFrom:     &from,
		ValidUntil:    &until,
		TaxableAmount: d("120000"),
		CGSTAmount:    d("10800"),
		SGSTAmount:    d("10800"),
		TotalAmount:   d("141600"),
	}
}

func TestGenerateSchedulesUsesPODefaults(t *testing.T) {
	tx := &stubTx{po: newPO()}
	svc := NewService(&stubRepo{tx: tx}, nil)

	out, err := svc.GenerateSchedules(context.Background(), 1, GenerateRequest{})
	require.NoError(t, err)
	require.Len(t, out, 12)
	require.True(t, out[0].GSTAmount.Equal(d("1800")))
	require.Len(t, tx.schedules, 12)
}

func TestGenerateSchedulesKeepsInvoicedInstallments(t *testing.T) {
	tx := &stubTx{po: newPO()}
	svc := NewService(&stubRepo{tx: tx}, nil)
	_, err := svc.GenerateSchedules(context.Background(), 1, GenerateRequest{})
	require.NoError(t, err)

	tx.schedules[0].Status = ScheduleInvoiced
	tx.schedules[1].Status = SchedulePIRaised

	out, err := svc.GenerateSchedules(context.Background(), 1, GenerateRequest{
		Frequency: FrequencyQuarterly,
		StartDate: day(2025, time.June, 1),
	})
	require.NoError(t, err)
	require.Len(t, out, 4)
	require.Equal(t, 3, out[0].InstallmentNumber)
	require.True(t, out[0].Amount.Equal(d("25000")))
	require.True(t, out[0].GSTAmount.Equal(d("4500")))
	require.Len(t, tx.schedules, 6)
}

func TestGenerateSchedulesErrors(t *testing.T) {
	po := newPO()
	po.ValidUntil = nil
	svc := NewService(&stubRepo{tx: &stubTx{po: po}}, nil)
	_, err := svc.GenerateSchedules(context.Background(), 1, GenerateRequest{})
	require.ErrorIs(t, err, ErrEndDateRequired)

	po = newPO()
	po.Frequency = FrequencyMilestone
	svc = NewService(&stubRepo{tx: &stubTx{po: po}}, nil)
	_, err = svc.GenerateSchedules(context.Background(), 1, GenerateRequest{})
	require.ErrorIs(t, err, ErrUnsupportedFrequency)

	po = newPO()
	po.Status = ClientPOCancelled
	svc = NewService(&stubRepo{tx: &stubTx{po: po}}, nil)
	_, err = svc.GenerateSchedules(context.Background(), 1, GenerateRequest{})
	require.ErrorIs(t, err, ErrClientPOClosed)

	svc = NewService(&stubRepo{tx: &stubTx{po: newPO()}}, nil)
	_, err = svc.GenerateSchedules(context.Background(), 2, GenerateRequest{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGenerateSchedulesNothingLeft(t *testing.T) {
	tx := &stubTx{po: newPO(), schedules: []BillingSchedule{
		{ID: 1, ClientPOID: 1, InstallmentNumber: 1, Status: ScheduleInvoiced, Amount: d("120000"), GSTAmount: d("21600")},
	}}
	svc := NewService(&stubRepo{tx: tx}, nil)
	_, err := svc.GenerateSchedules(context.Background(), 1, GenerateRequest{})
	require.ErrorIs(t, err, ErrNothingToSchedule)
}

func TestUpdateAndDeleteOnlyPending(t *testing.T) {
	tx := &stubTx{po: newPO()}
	svc := NewService(&stubRepo{tx: tx}, nil)
	out, err := svc.GenerateSchedules(context.Background(), 1, GenerateRequest{})
	require.NoError(t, err)

	amount := d("9000")
	updated, err := svc.UpdateSchedule(context.Background(), out[0].ID, ScheduleUpdate{Amount: &amount})
	require.NoError(t, err)
	require.True(t, updated.TotalAmount.Equal(d("10800")))

	tx.schedules[1].Status = ScheduleInvoiced
	_, err = svc.UpdateSchedule(context.Background(), out[1].ID, ScheduleUpdate{Amount: &amount})
	require.ErrorIs(t, err, ErrScheduleLocked)
	require.ErrorIs(t, svc.DeleteSchedule(context.Background(), out[1].ID), ErrScheduleLocked)

	require.NoError(t, svc.DeleteSchedule(context.Background(), out[2].ID))
	require.Len(t, tx.schedules, 11)
}

func TestCreateClientPOComputesTotalsAndNumbers(t *testing.T) {
	tx := &stubTx{}
	svc := NewService(&stubRepo{tx: tx}, nil)
	svc.now = func() time.Time { return day(2025, time.March, 15) }

	po, err := svc.CreateClientPO(context.Background(), settings.Defaults(), CreateClientPOInput{
		ClientID: 9,
		BranchID: 1,
		Subject:  "Annual maintenance",
		Items: []POItemInput{
			{Description: "Exempt service", ItemInput: ItemInput{Quantity: d("1"), Rate: d("1000"), GSTRate: pct("0")}},
			{Description: "Support", ItemInput: ItemInput{Quantity: d("2"), Rate: d("500")}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "CPO/2024-25/0001", po.InternalNumber)
	require.Equal(t, ClientPODraft, po.Status)
	require.Equal(t, FrequencyMonthly, po.Frequency)
	require.True(t, po.Subtotal.Equal(d("2000")))
	require.True(t, po.CGSTAmount.Equal(d("90")))
	require.True(t, po.SGSTAmount.Equal(d("90")))
	require.True(t, po.TotalAmount.Equal(d("2180")))
	require.True(t, po.RemainingAmount.Equal(d("2180")))
	require.Len(t, po.Items, 2)
	require.True(t, po.Items[0].GSTRate.IsZero())
	require.True(t, po.Items[0].TotalAmount.Equal(d("1000")))
	require.True(t, po.Items[1].GSTRate.Equal(d("18")))
	require.Equal(t, "NOS", po.Items[1].Unit)
	require.Equal(t, 2, po.Items[1].SerialNo)
	require.Len(t, tx.inserted, 1)

	next, err := svc.CreateClientPO(context.Background(), settings.Defaults(), CreateClientPOInput{
		ClientID: 9,
		BranchID: 1,
		Date:     day(2025, time.April, 2),
		Items:    []POItemInput{{ItemInput: ItemInput{Quantity: d("1"), Rate: d("100")}}},
	})
	require.NoError(t, err)
	require.Equal(t, "CPO/2025-26/0001", next.InternalNumber)
}

func TestCreateClientPOValidation(t *testing.T) {
	from := day(2025, time.April, 1)
	until := day(2025, time.March, 1)
	item := []POItemInput{{ItemInput: ItemInput{Quantity: d("1"), Rate: d("100")}}}
	cases := []CreateClientPOInput{
		{BranchID: 1, Items: item},
		{ClientID: 1, Items: item},
		{ClientID: 1, BranchID: 1},
		{ClientID: 1, BranchID: 1, Items: item, Frequency: "WEEKLY"},
		{ClientID: 1, BranchID: 1, Items: item, ValidFrom: &from, ValidUntil: &until},
		{ClientID: 1, BranchID: 1, Items: []POItemInput{{ItemInput: ItemInput{Quantity: d("1"), Rate: d("100"), GSTRate: pct("-5")}}}},
	}
	tx := &stubTx{}
	svc := NewService(&stubRepo{tx: tx}, nil)
	for _, in := range cases {
		_, err := svc.CreateClientPO(context.Background(), settings.Defaults(), in)
		require.ErrorIs(t, err, ErrInvalidClientPO)
	}
	require.Empty(t, tx.inserted)
}
