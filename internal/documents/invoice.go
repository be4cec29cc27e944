// Package documents defines the commercial documents that are taxed, numbered
// and posted: invoices, proforma invoices and payments.
package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/numbering"
	"github.com/gstbooks/gstbooks/internal/tax"
)

// InvoiceType enumerates invoice kinds.
type InvoiceType string

const (
	InvoiceSales      InvoiceType = "SALES"
	InvoicePurchase   InvoiceType = "PURCHASE"
	InvoiceCreditNote InvoiceType = "CREDIT_NOTE"
	InvoiceDebitNote  InvoiceType = "DEBIT_NOTE"
)

// Valid reports whether t is a known invoice type.
func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceSales, InvoicePurchase, InvoiceCreditNote, InvoiceDebitNote:
		return true
	}
	return false
}

// NumberPrefix returns the numbering prefix for the type.
func (t InvoiceType) NumberPrefix() string {
	switch t {
	case InvoicePurchase:
		return numbering.PrefixPurchaseInvoice
	case InvoiceCreditNote:
		return numbering.PrefixCreditNote
	case InvoiceDebitNote:
		return numbering.PrefixDebitNote
	default:
		return numbering.PrefixSalesInvoice
	}
}

// CustomerFacing reports whether the counterparty is a client.
func (t InvoiceType) CustomerFacing() bool {
	return t == InvoiceSales || t == InvoiceCreditNote
}

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePartial   InvoiceStatus = "PARTIAL"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// LineItem is a taxed line on an invoice or proforma.
type LineItem struct {
	ID              int64
	SerialNo        int
	Description     string
	HSNSAC          string
	Unit            string
	Quantity        decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	GSTRate         decimal.Decimal
	CessRate        decimal.Decimal
	tax.LineAmounts
}

// TaxInput returns the tax engine input for the line.
func (l LineItem) TaxInput() tax.LineInput {
	return tax.LineInput{
		Quantity:        l.Quantity,
		Rate:            l.Rate,
		DiscountPercent: l.DiscountPercent,
		GSTRate:         l.GSTRate,
		CessRate:        l.CessRate,
	}
}

// Withholding holds the TDS and TCS configuration of a document.
type Withholding struct {
	TDSApplicable bool
	TDSRate       decimal.Decimal
	TCSApplicable bool
	TCSRate       decimal.Decimal
}

// Invoice is a sales or purchase invoice, credit note or debit note.
type Invoice struct {
	ID                int64
	Number            string
	Type              InvoiceType
	Status            InvoiceStatus
	Date              time.Time
	DueDate           *time.Time
	ClientID          *int64
	VendorID          *int64
	BranchID          int64
	ClientPOID        *int64
	BillingScheduleID *int64
	ProformaID        *int64
	IsIGST            bool
	PlaceOfSupply     string
	Withholding
	tax.Totals
	AmountPaid decimal.Decimal
	AmountDue  decimal.Decimal
	IsPosted   bool
	Notes      string
	Items      []LineItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaxInput builds the tax engine input from the invoice lines.
func (inv Invoice) TaxInput() tax.DocumentInput {
	return documentInput(inv.Items, inv.IsIGST, inv.DiscountPercent, inv.DiscountAmount, inv.Withholding)
}

// ApplyBreakdown stores computed amounts on the invoice and its lines.
func (inv *Invoice) ApplyBreakdown(b tax.Breakdown) {
	for i := range inv.Items {
		if i < len(b.Lines) {
			inv.Items[i].LineAmounts = b.Lines[i]
		}
		inv.Items[i].SerialNo = i + 1
	}
	inv.Totals = b.Totals
	inv.AmountDue = inv.Totals.AmountDue(inv.AmountPaid)
}

// ApplyPayment records net received against the invoice and moves the status.
func (inv *Invoice) ApplyPayment(net decimal.Decimal) {
	inv.AmountPaid = inv.AmountPaid.Add(net)
	inv.AmountDue = inv.Totals.AmountDue(inv.AmountPaid)
	if inv.AmountDue.LessThanOrEqual(decimal.Zero) {
		inv.Status = InvoicePaid
	} else {
		inv.Status = InvoicePartial
	}
}

// RevertPayment undoes ApplyPayment.
func (inv *Invoice) RevertPayment(net decimal.Decimal) {
	inv.AmountPaid = inv.AmountPaid.Sub(net)
	inv.AmountDue = inv.Totals.AmountDue(inv.AmountPaid)
	if inv.AmountPaid.LessThanOrEqual(decimal.Zero) {
		inv.Status = InvoiceSent
	} else {
		inv.Status = InvoicePartial
	}
}

// CountsTowardFulfillment reports whether the invoice contributes to PO fulfillment.
func (inv Invoice) CountsTowardFulfillment() bool {
	return inv.Status != InvoiceCancelled
}

func documentInput(items []LineItem, isIGST bool, discountPercent, discountAmount decimal.Decimal, w Withholding) tax.DocumentInput {
	lines := make([]tax.LineInput, len(items))
	for i, item := range items {
		lines[i] = item.TaxInput()
	}
	return tax.DocumentInput{
		Lines:           lines,
		IsIGST:          isIGST,
		DiscountPercent: discountPercent,
		DiscountAmount:  discountAmount,
		TDS:             tax.Withholding{Applicable: w.TDSApplicable, Rate: w.TDSRate},
		TCS:             tax.Withholding{Applicable: w.TCSApplicable, Rate: w.TCSRate},
	}
}
