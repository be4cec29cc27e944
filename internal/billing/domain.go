// Package billing models client purchase orders and splits them into
// recurring billing schedules.
package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Frequency is the billing cadence of a client PO.
type Frequency string

const (
	FrequencyOneTime    Frequency = "ONE_TIME"
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencyHalfYearly Frequency = "HALF_YEARLY"
	FrequencyYearly     Frequency = "YEARLY"
	FrequencyMilestone  Frequency = "MILESTONE"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOneTime, FrequencyMonthly, FrequencyQuarterly, FrequencyHalfYearly, FrequencyYearly, FrequencyMilestone:
		return true
	}
	return false
}

// Months returns the period step for recurring frequencies.
func (f Frequency) Months() (int, error) {
	switch f {
	case FrequencyMonthly:
		return 1, nil
	case FrequencyQuarterly:
		return 3, nil
	case FrequencyHalfYearly:
		return 6, nil
	case FrequencyYearly:
		return 12, nil
	default:
		return 0, &UnsupportedFrequencyError{Frequency: f}
	}
}

// Label renders the frequency for humans, e.g. "Half Yearly".
func (f Frequency) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(f)), "_", " "))
}

// ErrUnsupportedFrequency matches UnsupportedFrequencyError.
var ErrUnsupportedFrequency = errors.New("billing: frequency does not support schedules")

// UnsupportedFrequencyError is returned for frequencies without a fixed period.
type UnsupportedFrequencyError struct {
	Frequency Frequency
}

func (e *UnsupportedFrequencyError) Error() string {
	return fmt.Sprintf("billing: cannot generate schedules for %s frequency", e.Frequency)
}

// Is matches ErrUnsupportedFrequency.
func (e *UnsupportedFrequencyError) Is(target error) bool { return target == ErrUnsupportedFrequency }

// ClientPOStatus enumerates PO lifecycle values.
type ClientPOStatus string

const (
	ClientPODraft     ClientPOStatus = "DRAFT"
	ClientPOActive    ClientPOStatus = "ACTIVE"
	ClientPOPartial   ClientPOStatus = "PARTIAL"
	ClientPOCompleted ClientPOStatus = "COMPLETED"
	ClientPOCancelled ClientPOStatus = "CANCELLED"
	ClientPOExpired   ClientPOStatus = "EXPIRED"
)

// ScheduleStatus enumerates billing schedule lifecycle values.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "PENDING"
	SchedulePIRaised  ScheduleStatus = "PI_RAISED"
	ScheduleInvoiced  ScheduleStatus = "INVOICED"
	ScheduleCancelled ScheduleStatus = "CANCELLED"
)

// ClientPOItem is a line of a client PO.
type ClientPOItem struct {
	ID          int64
	SerialNo    int
	Description string
	HSNSAC      string
	Quantity    decimal.Decimal
	Unit        string
	Rate        decimal.Decimal
	Amount      decimal.Decimal
	GSTRate     decimal.Decimal
	CGSTAmount  decimal.Decimal
	SGSTAmount  decimal.Decimal
	IGSTAmount  decimal.Decimal
	TotalAmount decimal.Decimal
}

// ClientPO is a purchase order received from a client, billed over time.
type ClientPO struct {
	ID              int64
	InternalNumber  string
	ClientPONumber  string
	ClientID        int64
	BranchID        int64
	Subject         string
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	Frequency       Frequency
	IsIGST          bool
	PlaceOfSupply   string
	Status          ClientPOStatus
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxableAmount   decimal.Decimal
	CGSTAmount      decimal.Decimal
	SGSTAmount      decimal.Decimal
	IGSTAmount      decimal.Decimal
	TotalAmount     decimal.Decimal
	InvoicedAmount  decimal.Decimal
	RemainingAmount decimal.Decimal
	Items           []ClientPOItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GSTAmount sums the PO's GST components.
func (po ClientPO) GSTAmount() decimal.Decimal {
	return po.CGSTAmount.Add(po.SGSTAmount).Add(po.IGSTAmount)
}

// ApplyTotals stores computed totals on the PO and its items.
func (po *ClientPO) ApplyTotals(t POTotals) {
	for i := range po.Items {
		if i < len(t.Items) {
			item := t.Items[i]
			po.Items[i].Amount = item.Amount
			po.Items[i].CGSTAmount = item.CGSTAmount
			po.Items[i].SGSTAmount = item.SGSTAmount
			po.Items[i].IGSTAmount = item.IGSTAmount
			po.Items[i].TotalAmount = item.TotalAmount
		}
		po.Items[i].SerialNo = i + 1
	}
	po.Subtotal = t.Subtotal
	po.DiscountAmount = t.DiscountAmount
	po.TaxableAmount = t.TaxableAmount
	po.CGSTAmount = t.CGSTAmount
	po.SGSTAmount = t.SGSTAmount
	po.IGSTAmount = t.IGSTAmount
	po.TotalAmount = t.TotalAmount
	po.RemainingAmount = t.TotalAmount.Sub(po.InvoicedAmount)
}

// BillingSchedule is one installment of a client PO.
type BillingSchedule struct {
	ID                int64
	ClientPOID        int64
	InstallmentNumber int
	Description       string
	DueDate           time.Time
	Amount            decimal.Decimal
	GSTAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	Status            ScheduleStatus
	ProformaID        *int64
	InvoiceID         *int64
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Editable reports whether the installment may still be changed or removed.
func (s BillingSchedule) Editable() bool {
	return s.Status == SchedulePending
}
