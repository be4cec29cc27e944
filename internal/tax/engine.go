// Package tax computes GST, cess, TDS and TCS for invoice-like documents.
//
// Every stored amount is rounded to paise as soon as it is produced so that the
// document totals are exact sums of their parts and the ledger can post them
// without residue. CGST and SGST are always equal halves of the line GST.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/money"
)

var two = decimal.NewFromInt(2)

// LineInput carries the user-entered values of one line item.
type LineInput struct {
	Quantity        decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	GSTRate         decimal.Decimal
	CessRate        decimal.Decimal
}

// LineAmounts holds the derived values of one line item.
type LineAmounts struct {
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	CGSTRate       decimal.Decimal
	SGSTRate       decimal.Decimal
	IGSTRate       decimal.Decimal
	CGSTAmount     decimal.Decimal
	SGSTAmount     decimal.Decimal
	IGSTAmount     decimal.Decimal
	CessAmount     decimal.Decimal
	TotalAmount    decimal.Decimal
}

// GSTAmount sums the three GST components of the line.
func (l LineAmounts) GSTAmount() decimal.Decimal {
	return l.CGSTAmount.Add(l.SGSTAmount).Add(l.IGSTAmount)
}

// Withholding configures TDS or TCS on a document.
type Withholding struct {
	Applicable bool
	Rate       decimal.Decimal
}

// DocumentInput is everything needed to total an invoice, proforma or purchase order.
type DocumentInput struct {
	Lines           []LineInput
	IsIGST          bool
	DiscountPercent decimal.Decimal
	// DiscountAmount is used only when DiscountPercent is zero.
	DiscountAmount decimal.Decimal
	TDS            Withholding
	TCS            Withholding
}

// Totals are the document-level amounts persisted on the header.
type Totals struct {
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxableAmount   decimal.Decimal
	CGSTAmount      decimal.Decimal
	SGSTAmount      decimal.Decimal
	IGSTAmount      decimal.Decimal
	CessAmount      decimal.Decimal
	RoundOff        decimal.Decimal
	TotalAmount     decimal.Decimal
	TDSAmount       decimal.Decimal
	TCSAmount       decimal.Decimal
	// AmountAfterTDS is TotalAmount - TDSAmount + TCSAmount: what the counterparty settles.
	AmountAfterTDS decimal.Decimal
}

// GSTAmount sums CGST, SGST and IGST.
func (t Totals) GSTAmount() decimal.Decimal {
	return t.CGSTAmount.Add(t.SGSTAmount).Add(t.IGSTAmount)
}

// AmountDue returns what remains payable after paid has been received.
func (t Totals) AmountDue(paid decimal.Decimal) decimal.Decimal {
	return t.AmountAfterTDS.Sub(paid)
}

// Breakdown pairs the per-line amounts with the document totals.
type Breakdown struct {
	Lines []LineAmounts
	Totals
}

// ComputeLine derives the amounts of a single line item.
func ComputeLine(in LineInput, isIGST bool) LineAmounts {
	amount := money.Round2(in.Quantity.Mul(in.Rate))
	discount := money.Round2(money.Percent(amount, in.DiscountPercent))
	taxable := amount.Sub(discount)
	gst := money.Percent(taxable, in.GSTRate)
	cess := money.Round2(money.Percent(taxable, in.CessRate))

	out := LineAmounts{
		Amount:         amount,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		CGSTAmount:     decimal.Zero,
		SGSTAmount:     decimal.Zero,
		IGSTAmount:     decimal.Zero,
		CGSTRate:       decimal.Zero,
		SGSTRate:       decimal.Zero,
		IGSTRate:       decimal.Zero,
		CessAmount:     cess,
	}
	if isIGST {
		out.IGSTRate = in.GSTRate
		out.IGSTAmount = money.Round2(gst)
	} else {
		half := money.Round2(gst.Div(two))
		out.CGSTRate = in.GSTRate.Div(two)
		out.SGSTRate = out.CGSTRate
		out.CGSTAmount = half
		out.SGSTAmount = half
	}
	out.TotalAmount = taxable.Add(out.GSTAmount()).Add(cess)
	return out
}

// ComputeDocument totals a document. TDS is charged on the taxable amount and TCS
// on the rounded total; neither changes TotalAmount.
func ComputeDocument(in DocumentInput) Breakdown {
	out := Breakdown{Lines: make([]LineAmounts, 0, len(in.Lines))}
	subtotal := decimal.Zero
	cgst, sgst, igst, cess := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, line := range in.Lines {
		amounts := ComputeLine(line, in.IsIGST)
		out.Lines = append(out.Lines, amounts)
		subtotal = subtotal.Add(amounts.TaxableAmount)
		cgst = cgst.Add(amounts.CGSTAmount)
		sgst = sgst.Add(amounts.SGSTAmount)
		igst = igst.Add(amounts.IGSTAmount)
		cess = cess.Add(amounts.CessAmount)
	}

	discount := in.DiscountAmount
	if !in.DiscountPercent.IsZero() {
		discount = money.Round2(money.Percent(subtotal, in.DiscountPercent))
	}
	discount = money.Round2(discount)
	taxable := subtotal.Sub(discount)

	preRound := money.Sum(taxable, cgst, sgst, igst, cess)
	total := money.RoundRupee(preRound)

	tds := decimal.Zero
	if in.TDS.Applicable {
		tds = money.Round2(money.Percent(taxable, in.TDS.Rate))
	}
	tcs := decimal.Zero
	if in.TCS.Applicable {
		tcs = money.Round2(money.Percent(total, in.TCS.Rate))
	}

	out.Totals = Totals{
		Subtotal:        subtotal,
		DiscountPercent: in.DiscountPercent,
		DiscountAmount:  discount,
		TaxableAmount:   taxable,
		CGSTAmount:      cgst,
		SGSTAmount:      sgst,
		IGSTAmount:      igst,
		CessAmount:      cess,
		RoundOff:        total.Sub(preRound),
		TotalAmount:     total,
		TDSAmount:       tds,
		TCSAmount:       tcs,
		AmountAfterTDS:  total.Sub(tds).Add(tcs),
	}
	return out
}
