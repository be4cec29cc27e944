package invoicing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/documents"
)

// LineInput is a requested line item.
type LineInput struct {
	Description     string `validate:"required,max=500"`
	HSNSAC          string `validate:"max=16"`
	Unit            string `validate:"max=16"`
	Quantity        decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	GSTRate         decimal.Decimal
	CessRate        decimal.Decimal
}

func (l LineInput) check(i int) error {
	switch {
	case !l.Quantity.IsPositive():
		return fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidInput, i+1)
	case l.Rate.IsNegative():
		return fmt.Errorf("%w: item %d rate is negative", ErrInvalidInput, i+1)
	case l.DiscountPercent.IsNegative() || l.DiscountPercent.GreaterThan(hundred):
		return fmt.Errorf("%w: item %d discount out of range", ErrInvalidInput, i+1)
	case l.GSTRate.IsNegative() || l.CessRate.IsNegative():
		return fmt.Errorf("%w: item %d tax rate is negative", ErrInvalidInput, i+1)
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// CreateInvoiceInput requests a new invoice, credit note or debit note.
type CreateInvoiceInput struct {
	Type            documents.InvoiceType `validate:"required,oneof=SALES PURCHASE CREDIT_NOTE DEBIT_NOTE"`
	Date            time.Time
	DueDate         *time.Time
	ClientID        *int64
	VendorID        *int64
	BranchID        int64 `validate:"gt=0"`
	ClientPOID      *int64
	IsIGST          bool
	PlaceOfSupply   string `validate:"max=64"`
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	documents.Withholding
	Notes string      `validate:"max=2000"`
	Items []LineInput `validate:"required,min=1,dive"`
}

func (in CreateInvoiceInput) check() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: invoice date required", ErrInvalidInput)
	}
	if in.Type.CustomerFacing() && in.ClientID == nil {
		return fmt.Errorf("%w: client required for %s", ErrInvalidInput, in.Type)
	}
	if !in.Type.CustomerFacing() && in.VendorID == nil {
		return fmt.Errorf("%w: vendor required for %s", ErrInvalidInput, in.Type)
	}
	if err := checkDocument(in.DiscountPercent, in.DiscountAmount, in.Withholding); err != nil {
		return err
	}
	for i, item := range in.Items {
		if err := item.check(i); err != nil {
			return err
		}
	}
	return nil
}

// CreateProformaInput requests a new proforma invoice.
type CreateProformaInput struct {
	Date            time.Time
	DueDate         *time.Time
	ValidUntil      *time.Time
	ClientID        int64 `validate:"gt=0"`
	BranchID        int64 `validate:"gt=0"`
	ClientPOID      *int64
	IsIGST          bool
	PlaceOfSupply   string `validate:"max=64"`
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	documents.Withholding
	Notes string      `validate:"max=2000"`
	Items []LineInput `validate:"required,min=1,dive"`
}

func (in CreateProformaInput) check() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: proforma date required", ErrInvalidInput)
	}
	if err := checkDocument(in.DiscountPercent, in.DiscountAmount, in.Withholding); err != nil {
		return err
	}
	for i, item := range in.Items {
		if err := item.check(i); err != nil {
			return err
		}
	}
	return nil
}

// CreatePaymentInput requests a receipt or vendor payment.
type CreatePaymentInput struct {
	Type            documents.PaymentType `validate:"required,oneof=RECEIPT PAYMENT"`
	Mode            documents.PaymentMode `validate:"required,oneof=CASH BANK_TRANSFER CHEQUE UPI CARD NEFT RTGS IMPS"`
	Date            time.Time
	ClientID        *int64
	VendorID        *int64
	BranchID        int64 `validate:"gt=0"`
	InvoiceID       *int64
	GrossAmount     decimal.Decimal
	TDSAmount       decimal.Decimal
	TCSAmount       decimal.Decimal
	ReferenceNumber string `validate:"max=64"`
	Notes           string `validate:"max=2000"`
}

func (in CreatePaymentInput) check() error {
	switch {
	case in.Date.IsZero():
		return fmt.Errorf("%w: payment date required", ErrInvalidInput)
	case !in.GrossAmount.IsPositive():
		return fmt.Errorf("%w: gross amount must be positive", ErrInvalidInput)
	case in.TDSAmount.IsNegative() || in.TCSAmount.IsNegative():
		return fmt.Errorf("%w: withholding amounts cannot be negative", ErrInvalidInput)
	case in.TDSAmount.GreaterThan(in.GrossAmount):
		return fmt.Errorf("%w: TDS exceeds gross amount", ErrInvalidInput)
	case in.Type == documents.PaymentReceipt && in.ClientID == nil:
		return fmt.Errorf("%w: client required for receipts", ErrInvalidInput)
	case in.Type == documents.PaymentMade && in.VendorID == nil:
		return fmt.Errorf("%w: vendor required for payments", ErrInvalidInput)
	}
	return nil
}

// FromScheduleInput carries the header values of a document raised from an installment.
type FromScheduleInput struct {
	Date    time.Time
	DueDate *time.Time
	documents.Withholding
	Notes string `validate:"max=2000"`
}

func checkDocument(discountPercent, discountAmount decimal.Decimal, w documents.Withholding) error {
	switch {
	case discountPercent.IsNegative() || discountPercent.GreaterThan(hundred):
		return fmt.Errorf("%w: discount percent out of range", ErrInvalidInput)
	case discountAmount.IsNegative():
		return fmt.Errorf("%w: discount amount is negative", ErrInvalidInput)
	case w.TDSRate.IsNegative() || w.TCSRate.IsNegative():
		return fmt.Errorf("%w: withholding rate is negative", ErrInvalidInput)
	}
	return nil
}

func lineItems(in []LineInput) []documents.LineItem {
	items := make([]documents.LineItem, len(in))
	for i, l := range in {
		unit := l.Unit
		if unit == "" {
			unit = "NOS"
		}
		items[i] = documents.LineItem{
			SerialNo:        i + 1,
			Description:     l.Description,
			HSNSAC:          l.HSNSAC,
			Unit:            unit,
			Quantity:        l.Quantity,
			Rate:            l.Rate,
			DiscountPercent: l.DiscountPercent,
			GSTRate:         l.GSTRate,
			CessRate:        l.CessRate,
		}
	}
	return items
}
