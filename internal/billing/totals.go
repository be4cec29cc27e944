package billing

import (
	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/money"
)

var defaultGSTRate = decimal.NewFromInt(18)

// ItemInput is the user-entered part of a PO line.
type ItemInput struct {
	Quantity decimal.Decimal
	Rate     decimal.Decimal
	// GSTRate defaults to 18 when nil. An explicit zero is a zero-rated line.
	GSTRate *decimal.Decimal
}

// EffectiveGSTRate returns the line's GST rate after defaulting.
func (i ItemInput) EffectiveGSTRate() decimal.Decimal {
	if i.GSTRate == nil {
		return defaultGSTRate
	}
	return *i.GSTRate
}

// ItemTotals are the derived amounts of a PO line.
type ItemTotals struct {
	Amount      decimal.Decimal
	CGSTAmount  decimal.Decimal
	SGSTAmount  decimal.Decimal
	IGSTAmount  decimal.Decimal
	TotalAmount decimal.Decimal
}

// POTotals are the derived amounts of a client PO.
type POTotals struct {
	Items          []ItemTotals
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	CGSTAmount     decimal.Decimal
	SGSTAmount     decimal.Decimal
	IGSTAmount     decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ComputePOTotals totals a client PO. The document discount reduces each
// item's GST base proportionally; a percentage takes precedence over an
// absolute discount amount.
func ComputePOTotals(items []ItemInput, isIGST bool, discountPercent, discountAmount decimal.Decimal) POTotals {
	out := POTotals{Items: make([]ItemTotals, len(items))}
	subtotal := decimal.Zero
	for i, item := range items {
		out.Items[i].Amount = money.Round2(item.Quantity.Mul(item.Rate))
		subtotal = subtotal.Add(out.Items[i].Amount)
	}

	discount := money.Round2(discountAmount)
	if !discountPercent.IsZero() {
		discount = money.Round2(money.Percent(subtotal, discountPercent))
	}
	taxable := subtotal.Sub(discount)

	cgst, sgst, igst := decimal.Zero, decimal.Zero, decimal.Zero
	for i, item := range items {
		rate := item.EffectiveGSTRate()
		base := out.Items[i].Amount
		if subtotal.IsPositive() && discount.IsPositive() {
			base = base.Mul(taxable).Div(subtotal)
		}
		gst := money.Percent(base, rate)
		if isIGST {
			out.Items[i].IGSTAmount = money.Round2(gst)
		} else {
			half := money.Round2(gst.Div(decimal.NewFromInt(2)))
			out.Items[i].CGSTAmount = half
			out.Items[i].SGSTAmount = half
		}
		line := out.Items[i]
		out.Items[i].TotalAmount = line.Amount.Add(line.CGSTAmount).Add(line.SGSTAmount).Add(line.IGSTAmount)
		cgst = cgst.Add(line.CGSTAmount)
		sgst = sgst.Add(line.SGSTAmount)
		igst = igst.Add(line.IGSTAmount)
	}

	out.Subtotal = subtotal
	out.DiscountAmount = discount
	out.TaxableAmount = taxable
	out.CGSTAmount = cgst
	out.SGSTAmount = sgst
	out.IGSTAmount = igst
	out.TotalAmount = money.Sum(taxable, cgst, sgst, igst)
	return out
}
