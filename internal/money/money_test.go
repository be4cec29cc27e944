package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	require.True(t, Percent(FromString("1000"), FromString("18")).Equal(FromString("180")))
	require.True(t, Percent(FromString("1000"), FromString("0")).IsZero())
}

func TestRoundingIsHalfAwayFromZero(t *testing.T) {
	require.Equal(t, "1234.01", Round2(FromString("1234.005")).StringFixed(2))
	require.Equal(t, "-0.01", Round2(FromString("-0.005")).StringFixed(2))
	require.Equal(t, "1235", RoundRupee(FromString("1234.5")).String())
	require.Equal(t, "1234", RoundRupee(FromString("1234.49")).String())
	require.Equal(t, "101", RoundRupee(FromString("100.50")).String())
	require.Equal(t, "-101", RoundRupee(FromString("-100.50")).String())
}

func TestSum(t *testing.T) {
	require.True(t, Sum(FromString("1.10"), FromString("2.20"), FromString("-0.30")).Equal(FromString("3")))
	require.True(t, Sum().IsZero())
}
