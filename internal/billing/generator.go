package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/money"
)

// Basis is the amount to be split across installments.
type Basis struct {
	ClientPOID    int64
	TaxableAmount decimal.Decimal
	GSTAmount     decimal.Decimal
}

// ErrInvalidRange is returned when the schedule window is malformed.
var ErrInvalidRange = errors.New("billing: schedule start and end dates required")

// Generate splits basis into installments starting at start and stepping by
// the frequency's period while the due date is before end. At least one
// installment is always produced. Installment amounts are rounded to paise
// and the last one absorbs the remainder, so installments sum to basis.
func Generate(basis Basis, freq Frequency, start, end time.Time, firstInstallment int) ([]BillingSchedule, error) {
	step, err := freq.Months()
	if err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, ErrInvalidRange
	}
	if firstInstallment < 1 {
		firstInstallment = 1
	}

	count := 0
	for addMonths(start, count*step).Before(end) {
		count++
	}
	if count < 1 {
		count = 1
	}

	n := decimal.NewFromInt(int64(count))
	amount := money.Round2(basis.TaxableAmount.Div(n))
	gst := money.Round2(basis.GSTAmount.Div(n))
	lastAmount := basis.TaxableAmount.Sub(amount.Mul(n.Sub(decimal.NewFromInt(1))))
	lastGST := basis.GSTAmount.Sub(gst.Mul(n.Sub(decimal.NewFromInt(1))))

	out := make([]BillingSchedule, count)
	for i := 0; i < count; i++ {
		due := addMonths(start, i*step)
		a, g := amount, gst
		if i == count-1 {
			a, g = lastAmount, lastGST
		}
		out[i] = BillingSchedule{
			ClientPOID:        basis.ClientPOID,
			InstallmentNumber: firstInstallment + i,
			Description:       fmt.Sprintf("%s - %s %d", freq.Label(), due.Month(), due.Year()),
			DueDate:           due,
			Amount:            a,
			GSTAmount:         g,
			TotalAmount:       a.Add(g),
			Status:            SchedulePending,
		}
	}
	return out, nil
}

// addMonths moves t by months, clamping the day to the end of the target month.
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}
