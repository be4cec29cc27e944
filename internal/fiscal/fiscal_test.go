package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFinancialYearAprilStart(t *testing.T) {
	require.Equal(t, "2024-25", FinancialYear(date(2024, time.May, 10), 4))
	require.Equal(t, "2024-25", FinancialYear(date(2024, time.April, 1), 4))
	require.Equal(t, "2024-25", FinancialYear(date(2025, time.March, 31), 4))
	require.Equal(t, "2023-24", FinancialYear(date(2024, time.March, 31), 4))
	require.Equal(t, "2099-00", FinancialYear(date(2099, time.December, 1), 4))
}

func TestFinancialYearCalendarStart(t *testing.T) {
	require.Equal(t, "2024-25", FinancialYear(date(2024, time.January, 1), 1))
	require.Equal(t, "2024-25", FinancialYear(date(2024, time.December, 31), 1))
}

func TestInvalidStartMonthFallsBackToApril(t *testing.T) {
	require.Equal(t, "2023-24", FinancialYear(date(2024, time.February, 1), 0))
	require.Equal(t, "2023-24", FinancialYear(date(2024, time.February, 1), 13))
}

func TestParse(t *testing.T) {
	y, err := Parse("2024-25")
	require.NoError(t, err)
	require.Equal(t, 2024, y)

	y, err = Parse("2024-2025")
	require.NoError(t, err)
	require.Equal(t, 2024, y)

	for _, bad := range []string{"", "2024", "2024-26", "24-25", "2024-2026", "abcd-ef"} {
		_, err := Parse(bad)
		require.ErrorIs(t, err, ErrInvalidFinancialYear, bad)
	}
}

func TestBoundsAndContains(t *testing.T) {
	start, end, err := Bounds("2024-25", 4)
	require.NoError(t, err)
	require.Equal(t, date(2024, time.April, 1), start)
	require.Equal(t, date(2025, time.March, 31), end)

	require.True(t, Contains("2024-25", date(2025, time.January, 15), 4))
	require.False(t, Contains("2024-25", date(2025, time.April, 1), 4))
	require.False(t, Contains("bogus", date(2025, time.April, 1), 4))
}

func TestQuarter(t *testing.T) {
	require.Equal(t, 1, Quarter(date(2024, time.April, 1), 4))
	require.Equal(t, 2, Quarter(date(2024, time.September, 30), 4))
	require.Equal(t, 3, Quarter(date(2024, time.December, 1), 4))
	require.Equal(t, 4, Quarter(date(2025, time.March, 1), 4))
	require.Equal(t, 1, Quarter(date(2025, time.February, 1), 1))
}
