package api

import (
	"log/slog"
	"net/http"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/fiscal"
	"github.com/gstbooks/gstbooks/internal/invoicing"
	"github.com/gstbooks/gstbooks/internal/platform/httpx"
	"github.com/gstbooks/gstbooks/internal/settings"
)

func newResponder(logger *slog.Logger) *httpx.Responder {
	const (
		invalid   = "Validation Failed"
		conflict  = "Conflict"
		unprocess = "Unprocessable Entity"
	)
	return httpx.NewResponder(logger,
		httpx.ErrorRule{Target: invoicing.ErrInvalidInput, Status: http.StatusBadRequest, Title: invalid},
		httpx.ErrorRule{Target: ledger.ErrInvalidJournal, Status: http.StatusBadRequest, Title: invalid},
		httpx.ErrorRule{Target: billing.ErrInvalidClientPO, Status: http.StatusBadRequest, Title: invalid},
		httpx.ErrorRule{Target: billing.ErrInvalidRange, Status: http.StatusBadRequest, Title: invalid},
		httpx.ErrorRule{Target: billing.ErrStartDateRequired, Status: http.StatusBadRequest, Title: invalid},
		httpx.ErrorRule{Target: billing.ErrEndDateRequired, Status: http.StatusBadRequest, Title: invalid},
		httpx.ErrorRule{Target: fiscal.ErrInvalidFinancialYear, Status: http.StatusBadRequest, Title: invalid},
		httpx.ErrorRule{Target: settings.ErrInvalidSettings, Status: http.StatusInternalServerError, Title: "Company Settings Invalid"},

		httpx.ErrorRule{Target: coa.ErrMissingDefaultAccount, Status: http.StatusUnprocessableEntity, Title: "Default Account Missing"},
		httpx.ErrorRule{Target: ledger.ErrUnbalancedVoucher, Status: http.StatusUnprocessableEntity, Title: "Unbalanced Voucher"},
		httpx.ErrorRule{Target: billing.ErrUnsupportedFrequency, Status: http.StatusUnprocessableEntity, Title: unprocess},
		httpx.ErrorRule{Target: billing.ErrNothingToSchedule, Status: http.StatusUnprocessableEntity, Title: unprocess},

		httpx.ErrorRule{Target: ledger.ErrAlreadyPosted, Status: http.StatusConflict, Title: "Already Posted"},
		httpx.ErrorRule{Target: ledger.ErrNotPosted, Status: http.StatusConflict, Title: "Not Posted"},
		httpx.ErrorRule{Target: ledger.ErrDocumentCancelled, Status: http.StatusConflict, Title: conflict},
		httpx.ErrorRule{Target: ledger.ErrPostingInProgress, Status: http.StatusConflict, Title: "Posting In Progress"},
		httpx.ErrorRule{Target: invoicing.ErrInvalidTransition, Status: http.StatusConflict, Title: conflict},
		httpx.ErrorRule{Target: invoicing.ErrScheduleNotPending, Status: http.StatusConflict, Title: conflict},
		httpx.ErrorRule{Target: invoicing.ErrInvoiceHasPayments, Status: http.StatusConflict, Title: conflict},
		httpx.ErrorRule{Target: invoicing.ErrPartyMismatch, Status: http.StatusConflict, Title: conflict},
		httpx.ErrorRule{Target: billing.ErrScheduleLocked, Status: http.StatusConflict, Title: conflict},
		httpx.ErrorRule{Target: billing.ErrClientPOClosed, Status: http.StatusConflict, Title: conflict},
	)
}
