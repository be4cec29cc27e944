package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
)

func TestLedgerMetricsCountOutcomes(t *testing.T) {
	m := NewLedgerMetrics(prometheus.NewRegistry())

	m.VoucherPosted(ledger.ReferenceInvoice, false)
	m.VoucherPosted(ledger.ReferenceInvoice, true)
	m.VoucherPosted(ledger.ReferencePayment, false)
	m.LegSkipped(coa.DefaultRoundOff)
	m.LegSkipped(coa.DefaultRoundOff)
	m.PostingFailed(ledger.ReferencePayment, "unbalanced")

	require.Equal(t, 1.0, testutil.ToFloat64(m.vouchers.WithLabelValues("INVOICE", "forward")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.vouchers.WithLabelValues("INVOICE", "reversal")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.skipped.WithLabelValues(string(coa.DefaultRoundOff))))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("PAYMENT", "unbalanced")))
}

func TestLedgerMetricsNilIsNoop(t *testing.T) {
	var m *LedgerMetrics
	require.NotPanics(t, func() {
		m.VoucherPosted(ledger.ReferenceJournal, false)
		m.LegSkipped(coa.DefaultSales)
		m.PostingFailed(ledger.ReferenceJournal, "x")
	})
}

var _ ledger.Recorder = (*LedgerMetrics)(nil)
