// Package numbering issues sequential, financial-year scoped document and
// voucher numbers of the form PREFIX/FY/NNNN.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Document number prefixes.
const (
	PrefixSalesInvoice    = "INV"
	PrefixPurchaseInvoice = "BILL"
	PrefixCreditNote      = "CN"
	PrefixDebitNote       = "DN"
	PrefixReceipt         = "REC"
	PrefixPayment         = "PAY"
	PrefixProforma        = "PI"
	PrefixClientPO        = "CPO"
	PrefixPurchaseOrder   = "PO"
)

// ErrInvalidNumber is returned by Parse for malformed numbers.
var ErrInvalidNumber = errors.New("numbering: invalid number")

// Counter atomically increments and returns the last issued sequence for a prefix and FY.
type Counter interface {
	NextSequence(ctx context.Context, prefix, financialYear string) (int64, error)
}

// Service formats numbers from a Counter.
type Service struct {
	counter Counter
}

// NewService constructs the numbering service.
func NewService(counter Counter) *Service {
	return &Service{counter: counter}
}

// Next issues the next number for prefix within financialYear.
func (s *Service) Next(ctx context.Context, prefix, financialYear string) (string, error) {
	if prefix == "" || financialYear == "" {
		return "", errors.New("numbering: prefix and financial year required")
	}
	seq, err := s.counter.NextSequence(ctx, prefix, financialYear)
	if err != nil {
		return "", fmt.Errorf("numbering: next %s/%s: %w", prefix, financialYear, err)
	}
	return Format(prefix, financialYear, seq), nil
}

// Format renders a number. Sequences above 9999 keep growing instead of wrapping.
func Format(prefix, financialYear string, seq int64) string {
	return fmt.Sprintf("%s/%s/%04d", prefix, financialYear, seq)
}

// Parse splits a number into prefix, financial year and sequence.
// Prefixes may not contain "/".
func Parse(number string) (string, string, int64, error) {
	parts := strings.Split(number, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", 0, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq <= 0 {
		return "", "", 0, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	return parts[0], parts[1], seq, nil
}

// SequenceOf returns the numeric suffix of number when it belongs to prefix and
// financialYear, or zero otherwise. Used to seed counters from existing rows.
func SequenceOf(number, prefix, financialYear string) int64 {
	p, fy, seq, err := Parse(number)
	if err != nil || p != prefix || fy != financialYear {
		return 0
	}
	return seq
}
