package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
)

// LedgerMetrics counts posting outcomes. It satisfies ledger.Recorder.
type LedgerMetrics struct {
	vouchers *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewLedgerMetrics registers the posting collectors.
func NewLedgerMetrics(registerer prometheus.Registerer) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &LedgerMetrics{
		vouchers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gstbooks_ledger_vouchers_total",
			Help: "Vouchers written by reference type and direction.",
		}, []string{"reference", "direction"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gstbooks_ledger_skipped_legs_total",
			Help: "Posting legs skipped because their default account is not configured.",
		}, []string{"account"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gstbooks_ledger_posting_failures_total",
			Help: "Posting attempts that failed by reference type and reason.",
		}, []string{"reference", "reason"}),
	}
	registerer.MustRegister(m.vouchers, m.skipped, m.failures)
	return m
}

// VoucherPosted counts a forward or reversal voucher.
func (m *LedgerMetrics) VoucherPosted(ref ledger.ReferenceType, reversal bool) {
	if m == nil {
		return
	}
	direction := "forward"
	if reversal {
		direction = "reversal"
	}
	m.vouchers.WithLabelValues(string(ref), direction).Inc()
}

// LegSkipped counts a leg dropped under the WARN policy.
func (m *LedgerMetrics) LegSkipped(role coa.DefaultAccount) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(string(role)).Inc()
}

// PostingFailed counts a failed posting.
func (m *LedgerMetrics) PostingFailed(ref ledger.ReferenceType, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(ref), reason).Inc()
}
