package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s got %s", want, got.String())
}

func TestComputeLineIntraStateSplitsEvenly(t *testing.T) {
	line := ComputeLine(LineInput{Quantity: d("10"), Rate: d("100"), GSTRate: d("18")}, false)
	requireDec(t, "1000", line.TaxableAmount)
	requireDec(t, "90", line.CGSTAmount)
	requireDec(t, "90", line.SGSTAmount)
	requireDec(t, "0", line.IGSTAmount)
	requireDec(t, "9", line.CGSTRate)
	requireDec(t, "1180", line.TotalAmount)
}

func TestComputeLineInterStateUsesIGST(t *testing.T) {
	line := ComputeLine(LineInput{Quantity: d("1"), Rate: d("999.99"), GSTRate: d("12")}, true)
	requireDec(t, "120", line.IGSTAmount)
	requireDec(t, "0", line.CGSTAmount)
	requireDec(t, "0", line.SGSTAmount)
	requireDec(t, "12", line.IGSTRate)
}

func TestComputeLineOddPaiseStillSplitsEvenly(t *testing.T) {
	line := ComputeLine(LineInput{Quantity: d("1"), Rate: d("1045.77"), GSTRate: d("18")}, false)
	require.True(t, line.CGSTAmount.Equal(line.SGSTAmount))
	requireDec(t, "94.12", line.CGSTAmount)
	requireDec(t, "188.24", line.GSTAmount())
}

func TestComputeLineZeroRate(t *testing.T) {
	line := ComputeLine(LineInput{Quantity: d("3"), Rate: d("50")}, false)
	requireDec(t, "150", line.TaxableAmount)
	require.True(t, line.GSTAmount().IsZero())
	require.True(t, line.CessAmount.IsZero())
	requireDec(t, "150", line.TotalAmount)
}

func TestComputeLineWithCess(t *testing.T) {
	line := ComputeLine(LineInput{Quantity: d("1"), Rate: d("1000"), GSTRate: d("28"), CessRate: d("12")}, false)
	requireDec(t, "140", line.CGSTAmount)
	requireDec(t, "120", line.CessAmount)
	requireDec(t, "1400", line.TotalAmount)
}

func TestComputeDocumentRoundOff(t *testing.T) {
	out := ComputeDocument(DocumentInput{
		Lines: []LineInput{{Quantity: d("1"), Rate: d("1045.77"), GSTRate: d("18")}},
	})
	requireDec(t, "1234", out.TotalAmount)
	requireDec(t, "-0.01", out.RoundOff)
	requireDec(t, "1234", out.AmountAfterTDS)

	igst := ComputeDocument(DocumentInput{
		IsIGST: true,
		Lines:  []LineInput{{Quantity: d("1"), Rate: d("999.99"), GSTRate: d("12")}},
	})
	requireDec(t, "1120", igst.TotalAmount)
	requireDec(t, "0.01", igst.RoundOff)
}

func TestComputeDocumentDiscounts(t *testing.T) {
	out := ComputeDocument(DocumentInput{
		DiscountPercent: d("5"),
		Lines: []LineInput{
			{Quantity: d("2"), Rate: d("500"), DiscountPercent: d("10"), GSTRate: d("18")},
			{Quantity: d("1"), Rate: d("100")},
		},
	})
	require.Len(t, out.Lines, 2)
	requireDec(t, "100", out.Lines[0].DiscountAmount)
	requireDec(t, "1000", out.Subtotal)
	requireDec(t, "50", out.DiscountAmount)
	requireDec(t, "950", out.TaxableAmount)
	// GST stays on the line taxable amounts.
	requireDec(t, "81", out.CGSTAmount)
	requireDec(t, "81", out.SGSTAmount)
	requireDec(t, "1112", out.TotalAmount)
}

func TestComputeDocumentAbsoluteDiscountWhenNoPercent(t *testing.T) {
	out := ComputeDocument(DocumentInput{
		DiscountAmount: d("25"),
		Lines:          []LineInput{{Quantity: d("1"), Rate: d("100")}},
	})
	requireDec(t, "75", out.TaxableAmount)
	requireDec(t, "75", out.TotalAmount)
}

func TestComputeDocumentWithholdingOrder(t *testing.T) {
	out := ComputeDocument(DocumentInput{
		Lines: []LineInput{{Quantity: d("10"), Rate: d("100"), GSTRate: d("18")}},
		TDS:   Withholding{Applicable: true, Rate: d("2")},
		TCS:   Withholding{Applicable: true, Rate: d("1")},
	})
	requireDec(t, "1180", out.TotalAmount)
	requireDec(t, "20", out.TDSAmount)
	requireDec(t, "11.8", out.TCSAmount)
	requireDec(t, "1171.8", out.AmountAfterTDS)
	requireDec(t, "171.8", out.AmountDue(d("1000")))
}

func TestComputeDocumentIgnoresRatesWhenNotApplicable(t *testing.T) {
	out := ComputeDocument(DocumentInput{
		Lines: []LineInput{{Quantity: d("1"), Rate: d("100")}},
		TDS:   Withholding{Rate: d("10")},
		TCS:   Withholding{Rate: d("1")},
	})
	require.True(t, out.TDSAmount.IsZero())
	require.True(t, out.TCSAmount.IsZero())
}

func TestComputeDocumentEmpty(t *testing.T) {
	out := ComputeDocument(DocumentInput{})
	require.Empty(t, out.Lines)
	require.True(t, out.TotalAmount.IsZero())
	require.True(t, out.RoundOff.IsZero())
}

func TestTotalsAreSumOfParts(t *testing.T) {
	out := ComputeDocument(DocumentInput{
		Lines: []LineInput{
			{Quantity: d("3"), Rate: d("33.33"), GSTRate: d("5"), CessRate: d("1")},
			{Quantity: d("7"), Rate: d("14.29"), GSTRate: d("12")},
		},
	})
	sum := out.TaxableAmount.Add(out.GSTAmount()).Add(out.CessAmount).Add(out.RoundOff)
	require.True(t, sum.Equal(out.TotalAmount))
	require.True(t, out.TotalAmount.Equal(out.TotalAmount.Round(0)))
}
