package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/documents"
)

// Leg is a planned voucher line before account resolution.
type Leg struct {
	Role      coa.DefaultAccount
	Side      Side
	Amount    decimal.Decimal
	Narration string
}

func (l Leg) swapped() Leg {
	if l.Side == SideDebit {
		l.Side = SideCredit
	} else {
		l.Side = SideDebit
	}
	return l
}

type legBuilder struct {
	prefix string
	legs   []Leg
}

func (b *legBuilder) add(role coa.DefaultAccount, side Side, amount decimal.Decimal, what string) {
	if amount.IsZero() {
		return
	}
	if amount.IsNegative() {
		amount = amount.Neg()
		if side == SideDebit {
			side = SideCredit
		} else {
			side = SideDebit
		}
	}
	b.legs = append(b.legs, Leg{Role: role, Side: side, Amount: amount, Narration: b.prefix + " - " + what})
}

// InvoiceLegs plans the voucher for an invoice. Credit notes mirror sales
// invoices and debit notes mirror purchase invoices.
func InvoiceLegs(inv documents.Invoice) ([]Leg, error) {
	switch inv.Type {
	case documents.InvoiceSales:
		return salesLegs(inv, "Sales Invoice"), nil
	case documents.InvoiceCreditNote:
		return swapAll(salesLegs(inv, "Credit Note")), nil
	case documents.InvoicePurchase:
		return purchaseLegs(inv, "Purchase Invoice"), nil
	case documents.InvoiceDebitNote:
		return swapAll(purchaseLegs(inv, "Debit Note")), nil
	default:
		return nil, fmt.Errorf("ledger: unsupported invoice type %q", inv.Type)
	}
}

func salesLegs(inv documents.Invoice, label string) []Leg {
	b := &legBuilder{prefix: fmt.Sprintf("%s %s", label, inv.Number)}
	b.add(coa.DefaultAccountsReceivable, SideDebit, inv.AmountAfterTDS, "Receivable from customer")
	b.add(coa.DefaultTDSReceivable, SideDebit, inv.TDSAmount, "TDS deducted by customer")
	b.add(coa.DefaultSales, SideCredit, inv.TaxableAmount, "Sales revenue")
	if inv.IsIGST {
		b.add(coa.DefaultIGSTOutput, SideCredit, inv.IGSTAmount, "IGST output")
	} else {
		b.add(coa.DefaultCGSTOutput, SideCredit, inv.CGSTAmount, "CGST output")
		b.add(coa.DefaultSGSTOutput, SideCredit, inv.SGSTAmount, "SGST output")
	}
	b.add(coa.DefaultCessOutput, SideCredit, inv.CessAmount, "Cess output")
	b.add(coa.DefaultTCSPayable, SideCredit, inv.TCSAmount, "TCS collected")
	// Rounding up raises the receivable, so the difference is credited.
	b.add(coa.DefaultRoundOff, SideCredit, inv.RoundOff, "Round off")
	return b.legs
}

func purchaseLegs(inv documents.Invoice, label string) []Leg {
	b := &legBuilder{prefix: fmt.Sprintf("%s %s", label, inv.Number)}
	b.add(coa.DefaultPurchase, SideDebit, inv.TaxableAmount, "Purchase expense")
	if inv.IsIGST {
		b.add(coa.DefaultIGSTInput, SideDebit, inv.IGSTAmount, "IGST input credit")
	} else {
		b.add(coa.DefaultCGSTInput, SideDebit, inv.CGSTAmount, "CGST input credit")
		b.add(coa.DefaultSGSTInput, SideDebit, inv.SGSTAmount, "SGST input credit")
	}
	b.add(coa.DefaultCessInput, SideDebit, inv.CessAmount, "Cess input credit")
	b.add(coa.DefaultTCSReceivable, SideDebit, inv.TCSAmount, "TCS paid to vendor")
	b.add(coa.DefaultRoundOff, SideDebit, inv.RoundOff, "Round off")
	b.add(coa.DefaultAccountsPayable, SideCredit, inv.AmountAfterTDS, "Payable to vendor")
	b.add(coa.DefaultTDSPayable, SideCredit, inv.TDSAmount, "TDS payable")
	return b.legs
}

// PaymentLegs plans the voucher for a receipt or vendor payment. The
// receivable or payable leg carries gross+tcs because net = gross-tds+tcs.
func PaymentLegs(p documents.Payment) ([]Leg, error) {
	cashOrBank := coa.DefaultBank
	if p.IsCash() {
		cashOrBank = coa.DefaultCash
	}
	settled := p.GrossAmount.Add(p.TCSAmount)
	switch p.Type {
	case documents.PaymentReceipt:
		b := &legBuilder{prefix: "Receipt " + p.Number}
		b.add(cashOrBank, SideDebit, p.NetAmount, "Money received from customer")
		b.add(coa.DefaultTDSReceivable, SideDebit, p.TDSAmount, "TDS deducted by customer")
		b.add(coa.DefaultAccountsReceivable, SideCredit, settled, "Receivable cleared")
		return b.legs, nil
	case documents.PaymentMade:
		b := &legBuilder{prefix: "Payment " + p.Number}
		b.add(coa.DefaultAccountsPayable, SideDebit, settled, "Payable cleared")
		b.add(cashOrBank, SideCredit, p.NetAmount, "Money paid to vendor")
		b.add(coa.DefaultTDSPayable, SideCredit, p.TDSAmount, "TDS withheld")
		return b.legs, nil
	default:
		return nil, fmt.Errorf("ledger: unsupported payment type %q", p.Type)
	}
}

func swapAll(legs []Leg) []Leg {
	out := make([]Leg, len(legs))
	for i, l := range legs {
		out[i] = l.swapped()
	}
	return out
}
