package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/numbering"
)

// PaymentType distinguishes money received from money paid.
type PaymentType string

const (
	PaymentReceipt PaymentType = "RECEIPT"
	PaymentMade    PaymentType = "PAYMENT"
)

// Valid reports whether t is known.
func (t PaymentType) Valid() bool {
	return t == PaymentReceipt || t == PaymentMade
}

// NumberPrefix returns the numbering prefix for the type.
func (t PaymentType) NumberPrefix() string {
	if t == PaymentMade {
		return numbering.PrefixPayment
	}
	return numbering.PrefixReceipt
}

// PaymentMode enumerates settlement channels.
type PaymentMode string

const (
	ModeCash         PaymentMode = "CASH"
	ModeBankTransfer PaymentMode = "BANK_TRANSFER"
	ModeCheque       PaymentMode = "CHEQUE"
	ModeUPI          PaymentMode = "UPI"
	ModeCard         PaymentMode = "CARD"
	ModeNEFT         PaymentMode = "NEFT"
	ModeRTGS         PaymentMode = "RTGS"
	ModeIMPS         PaymentMode = "IMPS"
)

// PaymentStatus enumerates payment lifecycle values.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentBounced   PaymentStatus = "BOUNCED"
)

// Payment is a receipt from a client or a payment to a vendor.
type Payment struct {
	ID              int64
	Number          string
	Type            PaymentType
	Mode            PaymentMode
	Status          PaymentStatus
	Date            time.Time
	ClientID        *int64
	VendorID        *int64
	BranchID        int64
	InvoiceID       *int64
	GrossAmount     decimal.Decimal
	TDSAmount       decimal.Decimal
	TCSAmount       decimal.Decimal
	NetAmount       decimal.Decimal
	ReferenceNumber string
	Notes           string
	IsPosted        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NetAmount returns gross - tds + tcs.
func NetAmount(gross, tds, tcs decimal.Decimal) decimal.Decimal {
	return gross.Sub(tds).Add(tcs)
}

// IsCash reports whether the payment moved through the cash account.
func (p Payment) IsCash() bool {
	return p.Mode == ModeCash
}
