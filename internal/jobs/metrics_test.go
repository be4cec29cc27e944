package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("ledger:integrity").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("ledger:integrity").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:integrity", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:integrity", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ledger:integrity")))
}

func TestSetUnbalancedVouchers(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetUnbalancedVouchers(3)
	require.Equal(t, 3.0, testutil.ToFloat64(m.unbalanced))

	var nilMetrics *Metrics
	nilMetrics.SetUnbalancedVouchers(1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
