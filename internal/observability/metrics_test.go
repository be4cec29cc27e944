package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandlerServesRuntimeAndLedgerCollectors(t *testing.T) {
	metrics := NewMetrics()
	NewLedgerMetrics(metrics.Registerer()).VoucherPosted(ledger.ReferenceInvoice, false)

	body := scrape(t, metrics)
	require.Contains(t, body, "gstbooks_ledger_vouchers_total")
	require.Contains(t, body, "go_goroutines")
}

func TestMiddlewareLabelsByMethodAndRoutePattern(t *testing.T) {
	metrics := NewMetrics()

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Post("/invoices/{id}/send", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices/"+id+"/send", nil))
		require.Equal(t, http.StatusConflict, rec.Code)
	}

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodPost, "/invoices/{id}/send", "409")))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.inFlight))

	body := scrape(t, metrics)
	require.True(t, strings.Contains(body, `gstbooks_http_request_duration_seconds_bucket{method="POST",route="/invoices/{id}/send"`), body)
}

func TestMiddlewareWithoutRouteContext(t *testing.T) {
	metrics := NewMetrics()
	h := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil).WithContext(context.Background())
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "unmatched", "418")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, m.Registerer())
}
