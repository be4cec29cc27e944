// Package fiscal implements Indian financial-year arithmetic. A financial year
// starting in April 2024 is labelled "2024-25".
package fiscal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultStartMonth is April, the statutory start of the Indian financial year.
const DefaultStartMonth = time.April

// ErrInvalidFinancialYear is returned when a label cannot be parsed.
var ErrInvalidFinancialYear = errors.New("fiscal: invalid financial year")

// Normalize clamps a configured start month into 1..12, defaulting to April.
func Normalize(startMonth int) time.Month {
	if startMonth < 1 || startMonth > 12 {
		return DefaultStartMonth
	}
	return time.Month(startMonth)
}

// StartYear returns the calendar year in which the financial year containing date begins.
func StartYear(date time.Time, startMonth int) int {
	if date.Month() >= Normalize(startMonth) {
		return date.Year()
	}
	return date.Year() - 1
}

// FinancialYear labels the financial year containing date.
func FinancialYear(date time.Time, startMonth int) string {
	return Label(StartYear(date, startMonth))
}

// Label formats a financial year starting in startYear.
func Label(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// Parse returns the starting calendar year of a label. Both "2024-25" and "2024-2025" are accepted.
func Parse(label string) (int, error) {
	parts := strings.Split(strings.TrimSpace(label), "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFinancialYear, label)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFinancialYear, label)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFinancialYear, label)
	}
	switch len(parts[1]) {
	case 2:
		if end != (start+1)%100 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFinancialYear, label)
		}
	case 4:
		if end != start+1 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFinancialYear, label)
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFinancialYear, label)
	}
	return start, nil
}

// Bounds returns the first and last day of the labelled financial year.
func Bounds(label string, startMonth int) (time.Time, time.Time, error) {
	startYear, err := Parse(label)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(startYear, Normalize(startMonth), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, -1)
	return start, end, nil
}

// Contains reports whether date falls inside the labelled financial year.
func Contains(label string, date time.Time, startMonth int) bool {
	startYear, err := Parse(label)
	if err != nil {
		return false
	}
	return StartYear(date, startMonth) == startYear
}

// Quarter returns the 1-based quarter of the financial year containing date.
func Quarter(date time.Time, startMonth int) int {
	offset := (int(date.Month()) - int(Normalize(startMonth)) + 12) % 12
	return offset/3 + 1
}

// Current labels the financial year containing now.
func Current(now time.Time, startMonth int) string {
	return FinancialYear(now, startMonth)
}
