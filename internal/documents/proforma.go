package documents

import (
	"time"

	"github.com/gstbooks/gstbooks/internal/tax"
)

// ProformaStatus enumerates proforma lifecycle values.
type ProformaStatus string

const (
	ProformaDraft     ProformaStatus = "DRAFT"
	ProformaSent      ProformaStatus = "SENT"
	ProformaGenerated ProformaStatus = "GENERATED"
	ProformaCancelled ProformaStatus = "CANCELLED"
)

// ProformaInvoice is a non-posting quotation that can be converted into a sales invoice.
type ProformaInvoice struct {
	ID                int64
	Number            string
	Status            ProformaStatus
	Date              time.Time
	DueDate           *time.Time
	ValidUntil        *time.Time
	ClientID          int64
	BranchID          int64
	ClientPOID        *int64
	BillingScheduleID *int64
	InvoiceID         *int64
	IsIGST            bool
	PlaceOfSupply     string
	Withholding
	tax.Totals
	Notes     string
	Items     []LineItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaxInput builds the tax engine input from the proforma lines.
func (pi ProformaInvoice) TaxInput() tax.DocumentInput {
	return documentInput(pi.Items, pi.IsIGST, pi.DiscountPercent, pi.DiscountAmount, pi.Withholding)
}

// ApplyBreakdown stores computed amounts on the proforma and its lines.
func (pi *ProformaInvoice) ApplyBreakdown(b tax.Breakdown) {
	for i := range pi.Items {
		if i < len(b.Lines) {
			pi.Items[i].LineAmounts = b.Lines[i]
		}
		pi.Items[i].SerialNo = i + 1
	}
	pi.Totals = b.Totals
}

// Convertible reports whether the proforma may become an invoice.
func (pi ProformaInvoice) Convertible() bool {
	return pi.Status == ProformaDraft || pi.Status == ProformaSent
}
