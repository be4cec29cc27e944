package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func TestGenerateMonthlyForAYear(t *testing.T) {
	out, err := Generate(Basis{ClientPOID: 5, TaxableAmount: d("120000"), GSTAmount: d("21600")},
		FrequencyMonthly, day(2025, time.January, 1), day(2026, time.January, 1), 1)
	require.NoError(t, err)
	require.Len(t, out, 12)
	for i, sch := range out {
		require.Equal(t, i+1, sch.InstallmentNumber)
		require.EqualValues(t, 5, sch.ClientPOID)
		require.Equal(t, SchedulePending, sch.Status)
		require.True(t, sch.Amount.Equal(d("10000")))
		require.True(t, sch.GSTAmount.Equal(d("1800")))
		require.True(t, sch.TotalAmount.Equal(d("11800")))
	}
	require.Equal(t, "Monthly - January 2025", out[0].Description)
	require.Equal(t, "Monthly - December 2025", out[11].Description)
	require.Equal(t, day(2025, time.December, 1), out[11].DueDate)
}

func TestGenerateQuarterlyEndIsExclusive(t *testing.T) {
	out, err := Generate(Basis{TaxableAmount: d("4000")}, FrequencyQuarterly,
		day(2025, time.April, 1), day(2026, time.March, 31), 1)
	require.NoError(t, err)
	require.Len(t, out, 4)
	require.Equal(t, day(2026, time.January, 1), out[3].DueDate)

	out, err = Generate(Basis{TaxableAmount: d("4000")}, FrequencyQuarterly,
		day(2025, time.April, 1), day(2026, time.January, 1), 1)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestGenerateClampsToMonthEndWithoutDrift(t *testing.T) {
	out, err := Generate(Basis{TaxableAmount: d("400")}, FrequencyMonthly,
		day(2025, time.January, 31), day(2025, time.May, 1), 1)
	require.NoError(t, err)
	require.Len(t, out, 4)
	require.Equal(t, day(2025, time.February, 28), out[1].DueDate)
	require.Equal(t, day(2025, time.March, 31), out[2].DueDate)
	require.Equal(t, day(2025, time.April, 30), out[3].DueDate)
}

func TestGenerateRemainderLandsOnLastInstallment(t *testing.T) {
	basis := Basis{TaxableAmount: d("100"), GSTAmount: d("18.01")}
	out, err := Generate(basis, FrequencyQuarterly, day(2025, time.January, 1), day(2025, time.September, 1), 1)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.True(t, out[0].Amount.Equal(d("33.33")))
	require.True(t, out[2].Amount.Equal(d("33.34")))
	require.True(t, out[2].GSTAmount.Equal(d("6.01")))

	amount, gst := decimal.Zero, decimal.Zero
	for _, sch := range out {
		amount = amount.Add(sch.Amount)
		gst = gst.Add(sch.GSTAmount)
	}
	require.True(t, amount.Equal(basis.TaxableAmount))
	require.True(t, gst.Equal(basis.GSTAmount))
}

func TestGenerateAlwaysProducesOneInstallment(t *testing.T) {
	out, err := Generate(Basis{TaxableAmount: d("500"), GSTAmount: d("90")}, FrequencyYearly,
		day(2025, time.June, 1), day(2025, time.June, 1), 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 3, out[0].InstallmentNumber)
	require.True(t, out[0].TotalAmount.Equal(d("590")))
	require.Equal(t, "Yearly - June 2025", out[0].Description)
}

func TestGenerateRejectsNonPeriodicFrequencies(t *testing.T) {
	for _, freq := range []Frequency{FrequencyOneTime, FrequencyMilestone} {
		_, err := Generate(Basis{TaxableAmount: d("1")}, freq, day(2025, time.January, 1), day(2026, time.January, 1), 1)
		require.ErrorIs(t, err, ErrUnsupportedFrequency)
		var unsupported *UnsupportedFrequencyError
		require.ErrorAs(t, err, &unsupported)
		require.Equal(t, freq, unsupported.Frequency)
	}
}

func TestGenerateRequiresDates(t *testing.T) {
	_, err := Generate(Basis{}, FrequencyMonthly, time.Time{}, day(2026, time.January, 1), 1)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestFrequencyLabelAndMonths(t *testing.T) {
	require.Equal(t, "Half Yearly", FrequencyHalfYearly.Label())
	require.Equal(t, "One Time", FrequencyOneTime.Label())
	months, err := FrequencyHalfYearly.Months()
	require.NoError(t, err)
	require.Equal(t, 6, months)
	require.False(t, Frequency("WEEKLY").Valid())
}

func pct(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestComputePOTotals(t *testing.T) {
	out := ComputePOTotals([]ItemInput{
		{Quantity: d("10"), Rate: d("1000")},
		{Quantity: d("1"), Rate: d("5000"), GSTRate: pct("12")},
	}, false, d("10"), decimal.Zero)

	require.True(t, out.Subtotal.Equal(d("15000")))
	require.True(t, out.DiscountAmount.Equal(d("1500")))
	require.True(t, out.TaxableAmount.Equal(d("13500")))
	// 9000*18% + 4500*12%
	require.True(t, out.CGSTAmount.Equal(d("1080")))
	require.True(t, out.SGSTAmount.Equal(d("1080")))
	require.True(t, out.TotalAmount.Equal(d("15660")))

	igst := ComputePOTotals([]ItemInput{{Quantity: d("1"), Rate: d("1000")}}, true, decimal.Zero, d("100"))
	require.True(t, igst.TaxableAmount.Equal(d("900")))
	require.True(t, igst.IGSTAmount.Equal(d("162")))
	require.True(t, igst.CGSTAmount.IsZero())
}

func TestComputePOTotalsZeroRatedLine(t *testing.T) {
	out := ComputePOTotals([]ItemInput{{Quantity: d("1"), Rate: d("1000"), GSTRate: pct("0")}}, false, decimal.Zero, decimal.Zero)
	require.True(t, out.CGSTAmount.IsZero())
	require.True(t, out.SGSTAmount.IsZero())
	require.True(t, out.TotalAmount.Equal(d("1000")))

	mixed := ComputePOTotals([]ItemInput{
		{Quantity: d("1"), Rate: d("1000"), GSTRate: pct("0")},
		{Quantity: d("1"), Rate: d("1000")},
	}, true, decimal.Zero, decimal.Zero)
	require.True(t, mixed.IGSTAmount.Equal(d("180")))
	require.True(t, mixed.Items[0].TotalAmount.Equal(d("1000")))
	require.True(t, mixed.TotalAmount.Equal(d("2180")))
}

func TestApplyTotals(t *testing.T) {
	po := ClientPO{Items: []ClientPOItem{{Quantity: d("2"), Rate: d("50")}}, InvoicedAmount: d("18")}
	po.ApplyTotals(ComputePOTotals([]ItemInput{{Quantity: d("2"), Rate: d("50")}}, false, decimal.Zero, decimal.Zero))
	require.True(t, po.TotalAmount.Equal(d("118")))
	require.True(t, po.RemainingAmount.Equal(d("100")))
	require.Equal(t, 1, po.Items[0].SerialNo)
	require.True(t, po.GSTAmount().Equal(d("18")))
}
