package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/documents"
	"github.com/gstbooks/gstbooks/internal/invoicing"
	"github.com/gstbooks/gstbooks/internal/tax"
)

const dateLayout = "2006-01-02"

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// UnmarshalJSON parses YYYY-MM-DD; null and "" leave the zero date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

// MarshalJSON renders YYYY-MM-DD, or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func datePtr(d *Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func fromTimePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

type lineRequest struct {
	Description     string          `json:"description" validate:"required,max=500"`
	HSNSAC          string          `json:"hsn_sac" validate:"max=16"`
	Unit            string          `json:"unit" validate:"max=16"`
	Quantity        decimal.Decimal `json:"quantity"`
	Rate            decimal.Decimal `json:"rate"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	GSTRate         decimal.Decimal `json:"gst_rate"`
	CessRate        decimal.Decimal `json:"cess_rate"`
}

func (l lineRequest) input() invoicing.LineInput {
	return invoicing.LineInput{
		Description:     l.Description,
		HSNSAC:          l.HSNSAC,
		Unit:            l.Unit,
		Quantity:        l.Quantity,
		Rate:            l.Rate,
		DiscountPercent: l.DiscountPercent,
		GSTRate:         l.GSTRate,
		CessRate:        l.CessRate,
	}
}

func lineInputs(lines []lineRequest) []invoicing.LineInput {
	out := make([]invoicing.LineInput, len(lines))
	for i, l := range lines {
		out[i] = l.input()
	}
	return out
}

type withholdingRequest struct {
	TDSApplicable bool            `json:"tds_applicable"`
	TDSRate       decimal.Decimal `json:"tds_rate"`
	TCSApplicable bool            `json:"tcs_applicable"`
	TCSRate       decimal.Decimal `json:"tcs_rate"`
}

func (w withholdingRequest) withholding() documents.Withholding {
	return documents.Withholding{
		TDSApplicable: w.TDSApplicable,
		TDSRate:       w.TDSRate,
		TCSApplicable: w.TCSApplicable,
		TCSRate:       w.TCSRate,
	}
}

type taxComputeRequest struct {
	IsIGST          bool            `json:"is_igst"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	withholdingRequest
	Items []lineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r taxComputeRequest) input() tax.DocumentInput {
	lines := make([]tax.LineInput, len(r.Items))
	for i, l := range r.Items {
		lines[i] = tax.LineInput{
			Quantity:        l.Quantity,
			Rate:            l.Rate,
			DiscountPercent: l.DiscountPercent,
			GSTRate:         l.GSTRate,
			CessRate:        l.CessRate,
		}
	}
	return tax.DocumentInput{
		Lines:           lines,
		IsIGST:          r.IsIGST,
		DiscountPercent: r.DiscountPercent,
		DiscountAmount:  r.DiscountAmount,
		TDS:             tax.Withholding{Applicable: r.TDSApplicable, Rate: r.TDSRate},
		TCS:             tax.Withholding{Applicable: r.TCSApplicable, Rate: r.TCSRate},
	}
}

type invoiceRequest struct {
	Type            string          `json:"invoice_type" validate:"required,oneof=SALES PURCHASE CREDIT_NOTE DEBIT_NOTE"`
	Date            Date            `json:"invoice_date"`
	DueDate         *Date           `json:"due_date"`
	ClientID        *int64          `json:"client_id" validate:"omitempty,gt=0"`
	VendorID        *int64          `json:"vendor_id" validate:"omitempty,gt=0"`
	BranchID        int64           `json:"branch_id" validate:"gt=0"`
	ClientPOID      *int64          `json:"client_po_id" validate:"omitempty,gt=0"`
	IsIGST          bool            `json:"is_igst"`
	PlaceOfSupply   string          `json:"place_of_supply" validate:"max=64"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	withholdingRequest
	Notes string        `json:"notes" validate:"max=2000"`
	Items []lineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r invoiceRequest) input() invoicing.CreateInvoiceInput {
	return invoicing.CreateInvoiceInput{
		Type:            documents.InvoiceType(r.Type),
		Date:            r.Date.Time,
		DueDate:         datePtr(r.DueDate),
		ClientID:        r.ClientID,
		VendorID:        r.VendorID,
		BranchID:        r.BranchID,
		ClientPOID:      r.ClientPOID,
		IsIGST:          r.IsIGST,
		PlaceOfSupply:   r.PlaceOfSupply,
		DiscountPercent: r.DiscountPercent,
		DiscountAmount:  r.DiscountAmount,
		Withholding:     r.withholding(),
		Notes:           r.Notes,
		Items:           lineInputs(r.Items),
	}
}

type proformaRequest struct {
	Date            Date            `json:"pi_date"`
	DueDate         *Date           `json:"due_date"`
	ValidUntil      *Date           `json:"valid_until"`
	ClientID        int64           `json:"client_id" validate:"gt=0"`
	BranchID        int64           `json:"branch_id" validate:"gt=0"`
	ClientPOID      *int64          `json:"client_po_id" validate:"omitempty,gt=0"`
	IsIGST          bool            `json:"is_igst"`
	PlaceOfSupply   string          `json:"place_of_supply" validate:"max=64"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	withholdingRequest
	Notes string        `json:"notes" validate:"max=2000"`
	Items []lineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r proformaRequest) input() invoicing.CreateProformaInput {
	return invoicing.CreateProformaInput{
		Date:            r.Date.Time,
		DueDate:         datePtr(r.DueDate),
		ValidUntil:      datePtr(r.ValidUntil),
		ClientID:        r.ClientID,
		BranchID:        r.BranchID,
		ClientPOID:      r.ClientPOID,
		IsIGST:          r.IsIGST,
		PlaceOfSupply:   r.PlaceOfSupply,
		DiscountPercent: r.DiscountPercent,
		DiscountAmount:  r.DiscountAmount,
		Withholding:     r.withholding(),
		Notes:           r.Notes,
		Items:           lineInputs(r.Items),
	}
}

type convertRequest struct {
	Date *Date `json:"invoice_date"`
}

type paymentRequest struct {
	Type            string          `json:"payment_type" validate:"required,oneof=RECEIPT PAYMENT"`
	Mode            string          `json:"payment_mode" validate:"required,oneof=CASH BANK_TRANSFER CHEQUE UPI CARD NEFT RTGS IMPS"`
	Date            Date            `json:"payment_date"`
	ClientID        *int64          `json:"client_id" validate:"omitempty,gt=0"`
	VendorID        *int64          `json:"vendor_id" validate:"omitempty,gt=0"`
	BranchID        int64           `json:"branch_id" validate:"gt=0"`
	InvoiceID       *int64          `json:"invoice_id" validate:"omitempty,gt=0"`
	GrossAmount     decimal.Decimal `json:"gross_amount"`
	TDSAmount       decimal.Decimal `json:"tds_amount"`
	TCSAmount       decimal.Decimal `json:"tcs_amount"`
	ReferenceNumber string          `json:"reference_number" validate:"max=64"`
	Notes           string          `json:"notes" validate:"max=2000"`
}

func (r paymentRequest) input() invoicing.CreatePaymentInput {
	return invoicing.CreatePaymentInput{
		Type:            documents.PaymentType(r.Type),
		Mode:            documents.PaymentMode(r.Mode),
		Date:            r.Date.Time,
		ClientID:        r.ClientID,
		VendorID:        r.VendorID,
		BranchID:        r.BranchID,
		InvoiceID:       r.InvoiceID,
		GrossAmount:     r.GrossAmount,
		TDSAmount:       r.TDSAmount,
		TCSAmount:       r.TCSAmount,
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
	}
}

type fromScheduleRequest struct {
	Date    Date  `json:"date"`
	DueDate *Date `json:"due_date"`
	withholdingRequest
	Notes string `json:"notes" validate:"max=2000"`
}

func (r fromScheduleRequest) input() invoicing.FromScheduleInput {
	return invoicing.FromScheduleInput{
		Date:        r.Date.Time,
		DueDate:     datePtr(r.DueDate),
		Withholding: r.withholding(),
		Notes:       r.Notes,
	}
}

type poItemRequest struct {
	Description string           `json:"description" validate:"required,max=500"`
	HSNSAC      string           `json:"hsn_sac" validate:"max=16"`
	Unit        string           `json:"unit" validate:"max=16"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Rate        decimal.Decimal  `json:"rate"`
	GSTRate     *decimal.Decimal `json:"gst_rate"`
}

type clientPORequest struct {
	ClientPONumber  string          `json:"client_po_number" validate:"max=64"`
	ClientID        int64           `json:"client_id" validate:"gt=0"`
	BranchID        int64           `json:"branch_id" validate:"gt=0"`
	Subject         string          `json:"subject" validate:"max=500"`
	ReceivedDate    *Date           `json:"received_date"`
	ValidFrom       *Date           `json:"valid_from"`
	ValidUntil      *Date           `json:"valid_until"`
	Frequency       string          `json:"billing_frequency" validate:"omitempty,oneof=ONE_TIME MONTHLY QUARTERLY HALF_YEARLY YEARLY MILESTONE"`
	IsIGST          bool            `json:"is_igst"`
	PlaceOfSupply   string          `json:"place_of_supply" validate:"max=64"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Items           []poItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r clientPORequest) input() billing.CreateClientPOInput {
	in := billing.CreateClientPOInput{
		ClientPONumber:  r.ClientPONumber,
		ClientID:        r.ClientID,
		BranchID:        r.BranchID,
		Subject:         r.Subject,
		ValidFrom:       datePtr(r.ValidFrom),
		ValidUntil:      datePtr(r.ValidUntil),
		Frequency:       billing.Frequency(r.Frequency),
		IsIGST:          r.IsIGST,
		PlaceOfSupply:   r.PlaceOfSupply,
		DiscountPercent: r.DiscountPercent,
		DiscountAmount:  r.DiscountAmount,
		Items:           make([]billing.POItemInput, len(r.Items)),
	}
	if r.ReceivedDate != nil {
		in.Date = r.ReceivedDate.Time
	}
	for i, item := range r.Items {
		in.Items[i] = billing.POItemInput{
			Description: item.Description,
			HSNSAC:      item.HSNSAC,
			Unit:        item.Unit,
			ItemInput:   billing.ItemInput{Quantity: item.Quantity, Rate: item.Rate, GSTRate: item.GSTRate},
		}
	}
	return in
}

type generateRequest struct {
	Frequency string `json:"frequency" validate:"omitempty,oneof=ONE_TIME MONTHLY QUARTERLY HALF_YEARLY YEARLY MILESTONE"`
	StartDate Date   `json:"start_date"`
	EndDate   *Date  `json:"end_date"`
}

type scheduleUpdateRequest struct {
	DueDate     *Date            `json:"due_date"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Amount      *decimal.Decimal `json:"amount"`
	GSTAmount   *decimal.Decimal `json:"gst_amount"`
	Notes       *string          `json:"notes" validate:"omitempty,max=2000"`
}

func (r scheduleUpdateRequest) update() billing.ScheduleUpdate {
	return billing.ScheduleUpdate{
		DueDate:     datePtr(r.DueDate),
		Description: r.Description,
		Amount:      r.Amount,
		GSTAmount:   r.GSTAmount,
		Notes:       r.Notes,
	}
}

type journalLineRequest struct {
	AccountID int64           `json:"account_id" validate:"gt=0"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration" validate:"max=500"`
}

type journalRequest struct {
	Date      Date                 `json:"entry_date"`
	Narration string               `json:"narration" validate:"max=500"`
	Opening   bool                 `json:"opening"`
	BranchID  *int64               `json:"branch_id" validate:"omitempty,gt=0"`
	Lines     []journalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (r journalRequest) input() ledger.JournalInput {
	lines := make([]ledger.JournalLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ledger.JournalLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Narration: l.Narration}
	}
	return ledger.JournalInput{
		Date:      r.Date.Time,
		Narration: r.Narration,
		Opening:   r.Opening,
		BranchID:  r.BranchID,
		Lines:     lines,
	}
}

type totalsResponse struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxableAmount   decimal.Decimal `json:"taxable_amount"`
	CGSTAmount      decimal.Decimal `json:"cgst_amount"`
	SGSTAmount      decimal.Decimal `json:"sgst_amount"`
	IGSTAmount      decimal.Decimal `json:"igst_amount"`
	CessAmount      decimal.Decimal `json:"cess_amount"`
	RoundOff        decimal.Decimal `json:"round_off"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TDSAmount       decimal.Decimal `json:"tds_amount"`
	TCSAmount       decimal.Decimal `json:"tcs_amount"`
	AmountAfterTDS  decimal.Decimal `json:"amount_after_tds"`
}

func totals(t tax.Totals) totalsResponse {
	return totalsResponse{
		Subtotal:        t.Subtotal,
		DiscountPercent: t.DiscountPercent,
		DiscountAmount:  t.DiscountAmount,
		TaxableAmount:   t.TaxableAmount,
		CGSTAmount:      t.CGSTAmount,
		SGSTAmount:      t.SGSTAmount,
		IGSTAmount:      t.IGSTAmount,
		CessAmount:      t.CessAmount,
		RoundOff:        t.RoundOff,
		TotalAmount:     t.TotalAmount,
		TDSAmount:       t.TDSAmount,
		TCSAmount:       t.TCSAmount,
		AmountAfterTDS:  t.AmountAfterTDS,
	}
}

type lineResponse struct {
	SerialNo        int             `json:"serial_no"`
	Description     string          `json:"description"`
	HSNSAC          string          `json:"hsn_sac"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	Rate            decimal.Decimal `json:"rate"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	GSTRate         decimal.Decimal `json:"gst_rate"`
	CessRate        decimal.Decimal `json:"cess_rate"`
	Amount          decimal.Decimal `json:"amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxableAmount   decimal.Decimal `json:"taxable_amount"`
	CGSTRate        decimal.Decimal `json:"cgst_rate"`
	SGSTRate        decimal.Decimal `json:"sgst_rate"`
	IGSTRate        decimal.Decimal `json:"igst_rate"`
	CGSTAmount      decimal.Decimal `json:"cgst_amount"`
	SGSTAmount      decimal.Decimal `json:"sgst_amount"`
	IGSTAmount      decimal.Decimal `json:"igst_amount"`
	CessAmount      decimal.Decimal `json:"cess_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

func lineAmounts(a tax.LineAmounts) lineResponse {
	return lineResponse{
		Amount:         a.Amount,
		DiscountAmount: a.DiscountAmount,
		TaxableAmount:  a.TaxableAmount,
		CGSTRate:       a.CGSTRate,
		SGSTRate:       a.SGSTRate,
		IGSTRate:       a.IGSTRate,
		CGSTAmount:     a.CGSTAmount,
		SGSTAmount:     a.SGSTAmount,
		IGSTAmount:     a.IGSTAmount,
		CessAmount:     a.CessAmount,
		TotalAmount:    a.TotalAmount,
	}
}

func lines(items []documents.LineItem) []lineResponse {
	out := make([]lineResponse, len(items))
	for i, it := range items {
		l := lineAmounts(it.LineAmounts)
		l.SerialNo = it.SerialNo
		l.Description = it.Description
		l.HSNSAC = it.HSNSAC
		l.Unit = it.Unit
		l.Quantity = it.Quantity
		l.Rate = it.Rate
		l.DiscountPercent = it.DiscountPercent
		l.GSTRate = it.GSTRate
		l.CessRate = it.CessRate
		out[i] = l
	}
	return out
}

type breakdownResponse struct {
	Lines []lineResponse `json:"items"`
	totalsResponse
}

type invoiceResponse struct {
	ID                int64  `json:"id"`
	Number            string `json:"invoice_number"`
	Type              string `json:"invoice_type"`
	Status            string `json:"status"`
	Date              Date   `json:"invoice_date"`
	DueDate           *Date  `json:"due_date,omitempty"`
	ClientID          *int64 `json:"client_id,omitempty"`
	VendorID          *int64 `json:"vendor_id,omitempty"`
	BranchID          int64  `json:"branch_id"`
	ClientPOID        *int64 `json:"client_po_id,omitempty"`
	BillingScheduleID *int64 `json:"billing_schedule_id,omitempty"`
	ProformaID        *int64 `json:"proforma_id,omitempty"`
	IsIGST            bool   `json:"is_igst"`
	PlaceOfSupply     string `json:"place_of_supply,omitempty"`
	totalsResponse
	AmountPaid decimal.Decimal `json:"amount_paid"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	IsPosted   bool            `json:"is_posted"`
	Notes      string          `json:"notes,omitempty"`
	Items      []lineResponse  `json:"items"`
}

func invoice(inv documents.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:                inv.ID,
		Number:            inv.Number,
		Type:              string(inv.Type),
		Status:            string(inv.Status),
		Date:              Date{Time: inv.Date},
		DueDate:           fromTimePtr(inv.DueDate),
		ClientID:          inv.ClientID,
		VendorID:          inv.VendorID,
		BranchID:          inv.BranchID,
		ClientPOID:        inv.ClientPOID,
		BillingScheduleID: inv.BillingScheduleID,
		ProformaID:        inv.ProformaID,
		IsIGST:            inv.IsIGST,
		PlaceOfSupply:     inv.PlaceOfSupply,
		totalsResponse:    totals(inv.Totals),
		AmountPaid:        inv.AmountPaid,
		AmountDue:         inv.AmountDue,
		IsPosted:          inv.IsPosted,
		Notes:             inv.Notes,
		Items:             lines(inv.Items),
	}
}

type proformaResponse struct {
	ID                int64  `json:"id"`
	Number            string `json:"pi_number"`
	Status            string `json:"status"`
	Date              Date   `json:"pi_date"`
	DueDate           *Date  `json:"due_date,omitempty"`
	ValidUntil        *Date  `json:"valid_until,omitempty"`
	ClientID          int64  `json:"client_id"`
	BranchID          int64  `json:"branch_id"`
	ClientPOID        *int64 `json:"client_po_id,omitempty"`
	BillingScheduleID *int64 `json:"billing_schedule_id,omitempty"`
	InvoiceID         *int64 `json:"invoice_id,omitempty"`
	IsIGST            bool   `json:"is_igst"`
	totalsResponse
	Items []lineResponse `json:"items"`
}

func proforma(pi documents.ProformaInvoice) proformaResponse {
	return proformaResponse{
		ID:                pi.ID,
		Number:            pi.Number,
		Status:            string(pi.Status),
		Date:              Date{Time: pi.Date},
		DueDate:           fromTimePtr(pi.DueDate),
		ValidUntil:        fromTimePtr(pi.ValidUntil),
		ClientID:          pi.ClientID,
		BranchID:          pi.BranchID,
		ClientPOID:        pi.ClientPOID,
		BillingScheduleID: pi.BillingScheduleID,
		InvoiceID:         pi.InvoiceID,
		IsIGST:            pi.IsIGST,
		totalsResponse:    totals(pi.Totals),
		Items:             lines(pi.Items),
	}
}

type paymentResponse struct {
	ID              int64           `json:"id"`
	Number          string          `json:"payment_number"`
	Type            string          `json:"payment_type"`
	Mode            string          `json:"payment_mode"`
	Status          string          `json:"status"`
	Date            Date            `json:"payment_date"`
	ClientID        *int64          `json:"client_id,omitempty"`
	VendorID        *int64          `json:"vendor_id,omitempty"`
	BranchID        int64           `json:"branch_id"`
	InvoiceID       *int64          `json:"invoice_id,omitempty"`
	GrossAmount     decimal.Decimal `json:"gross_amount"`
	TDSAmount       decimal.Decimal `json:"tds_amount"`
	TCSAmount       decimal.Decimal `json:"tcs_amount"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	IsPosted        bool            `json:"is_posted"`
}

func payment(p documents.Payment) paymentResponse {
	return paymentResponse{
		ID:              p.ID,
		Number:          p.Number,
		Type:            string(p.Type),
		Mode:            string(p.Mode),
		Status:          string(p.Status),
		Date:            Date{Time: p.Date},
		ClientID:        p.ClientID,
		VendorID:        p.VendorID,
		BranchID:        p.BranchID,
		InvoiceID:       p.InvoiceID,
		GrossAmount:     p.GrossAmount,
		TDSAmount:       p.TDSAmount,
		TCSAmount:       p.TCSAmount,
		NetAmount:       p.NetAmount,
		ReferenceNumber: p.ReferenceNumber,
		IsPosted:        p.IsPosted,
	}
}

type entryResponse struct {
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration"`
	Reversal  string          `json:"reversal_of,omitempty"`
}

type skippedResponse struct {
	Account string          `json:"account"`
	Side    string          `json:"side"`
	Amount  decimal.Decimal `json:"amount"`
}

type postingResponse struct {
	VoucherNumber string            `json:"voucher_number"`
	FinancialYear string            `json:"financial_year"`
	TotalDebit    decimal.Decimal   `json:"total_debit"`
	TotalCredit   decimal.Decimal   `json:"total_credit"`
	Entries       []entryResponse   `json:"entries"`
	Skipped       []skippedResponse `json:"skipped_legs,omitempty"`
}

func posting(r ledger.Result) postingResponse {
	out := postingResponse{
		VoucherNumber: r.VoucherNumber,
		FinancialYear: r.FinancialYear,
		TotalDebit:    r.TotalDebit(),
		TotalCredit:   r.TotalCredit(),
		Entries:       make([]entryResponse, len(r.Entries)),
	}
	for i, e := range r.Entries {
		out.Entries[i] = entryResponse{AccountID: e.AccountID, Debit: e.Debit, Credit: e.Credit, Narration: e.Narration, Reversal: e.ReversalOf}
	}
	for _, s := range r.Skipped {
		out.Skipped = append(out.Skipped, skippedResponse{Account: string(s.Role), Side: string(s.Side), Amount: s.Amount})
	}
	return out
}

type paymentOutcomeResponse struct {
	Payment paymentResponse  `json:"payment"`
	Posting *postingResponse `json:"posting,omitempty"`
	// Deferred is set when the payment was saved but the ledger posting failed.
	Deferred *deferredResponse `json:"posting_deferred,omitempty"`
}

type deferredResponse struct {
	Reason      string `json:"reason"`
	RetryQueued bool   `json:"retry_queued"`
}

type scheduleResponse struct {
	ID                int64           `json:"id"`
	ClientPOID        int64           `json:"client_po_id"`
	InstallmentNumber int             `json:"installment_number"`
	Description       string          `json:"description"`
	DueDate           Date            `json:"due_date"`
	Amount            decimal.Decimal `json:"amount"`
	GSTAmount         decimal.Decimal `json:"gst_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Status            string          `json:"status"`
	ProformaID        *int64          `json:"proforma_id,omitempty"`
	InvoiceID         *int64          `json:"invoice_id,omitempty"`
}

func schedules(in []billing.BillingSchedule) []scheduleResponse {
	out := make([]scheduleResponse, len(in))
	for i, s := range in {
		out[i] = schedule(s)
	}
	return out
}

func schedule(s billing.BillingSchedule) scheduleResponse {
	return scheduleResponse{
		ID:                s.ID,
		ClientPOID:        s.ClientPOID,
		InstallmentNumber: s.InstallmentNumber,
		Description:       s.Description,
		DueDate:           Date{Time: s.DueDate},
		Amount:            s.Amount,
		GSTAmount:         s.GSTAmount,
		TotalAmount:       s.TotalAmount,
		Status:            string(s.Status),
		ProformaID:        s.ProformaID,
		InvoiceID:         s.InvoiceID,
	}
}

type poItemResponse struct {
	ID          int64           `json:"id"`
	SerialNo    int             `json:"serial_no"`
	Description string          `json:"description"`
	HSNSAC      string          `json:"hsn_sac,omitempty"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
	CGSTAmount  decimal.Decimal `json:"cgst_amount"`
	SGSTAmount  decimal.Decimal `json:"sgst_amount"`
	IGSTAmount  decimal.Decimal `json:"igst_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type clientPOResponse struct {
	ID              int64            `json:"id"`
	InternalNumber  string           `json:"internal_number"`
	ClientPONumber  string           `json:"client_po_number,omitempty"`
	ClientID        int64            `json:"client_id"`
	BranchID        int64            `json:"branch_id"`
	Subject         string           `json:"subject,omitempty"`
	ValidFrom       *Date            `json:"valid_from,omitempty"`
	ValidUntil      *Date            `json:"valid_until,omitempty"`
	Frequency       string           `json:"billing_frequency"`
	IsIGST          bool             `json:"is_igst"`
	Status          string           `json:"status"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	TaxableAmount   decimal.Decimal  `json:"taxable_amount"`
	CGSTAmount      decimal.Decimal  `json:"cgst_amount"`
	SGSTAmount      decimal.Decimal  `json:"sgst_amount"`
	IGSTAmount      decimal.Decimal  `json:"igst_amount"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	InvoicedAmount  decimal.Decimal  `json:"invoiced_amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Items           []poItemResponse `json:"items"`
}

func clientPO(po billing.ClientPO) clientPOResponse {
	out := clientPOResponse{
		ID:              po.ID,
		InternalNumber:  po.InternalNumber,
		ClientPONumber:  po.ClientPONumber,
		ClientID:        po.ClientID,
		BranchID:        po.BranchID,
		Subject:         po.Subject,
		ValidFrom:       fromTimePtr(po.ValidFrom),
		ValidUntil:      fromTimePtr(po.ValidUntil),
		Frequency:       string(po.Frequency),
		IsIGST:          po.IsIGST,
		Status:          string(po.Status),
		Subtotal:        po.Subtotal,
		DiscountAmount:  po.DiscountAmount,
		TaxableAmount:   po.TaxableAmount,
		CGSTAmount:      po.CGSTAmount,
		SGSTAmount:      po.SGSTAmount,
		IGSTAmount:      po.IGSTAmount,
		TotalAmount:     po.TotalAmount,
		InvoicedAmount:  po.InvoicedAmount,
		RemainingAmount: po.RemainingAmount,
		Items:           make([]poItemResponse, len(po.Items)),
	}
	for i, it := range po.Items {
		out.Items[i] = poItemResponse{
			ID:          it.ID,
			SerialNo:    it.SerialNo,
			Description: it.Description,
			HSNSAC:      it.HSNSAC,
			Unit:        it.Unit,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Amount:      it.Amount,
			GSTRate:     it.GSTRate,
			CGSTAmount:  it.CGSTAmount,
			SGSTAmount:  it.SGSTAmount,
			IGSTAmount:  it.IGSTAmount,
			TotalAmount: it.TotalAmount,
		}
	}
	return out
}

type fulfillmentResponse struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	InvoicedAmount  decimal.Decimal `json:"invoiced_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

type fiscalYearResponse struct {
	Date          Date   `json:"date"`
	FinancialYear string `json:"financial_year"`
	Start         Date   `json:"start"`
	End           Date   `json:"end"`
	Quarter       int    `json:"quarter"`
}
