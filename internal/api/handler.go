// Package api exposes the invoicing and posting operations as a JSON API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/fiscal"
	"github.com/gstbooks/gstbooks/internal/fulfillment"
	"github.com/gstbooks/gstbooks/internal/invoicing"
	"github.com/gstbooks/gstbooks/internal/platform/httpx"
	"github.com/gstbooks/gstbooks/internal/settings"
	"github.com/gstbooks/gstbooks/internal/tax"
)

// IdempotencyHeader carries the client-chosen key for document creation.
const IdempotencyHeader = "Idempotency-Key"

// SettingsProvider loads the company settings for a request.
type SettingsProvider interface {
	CompanySettings(ctx context.Context) (settings.CompanySettings, error)
}

// IdempotencyGuard claims request keys per scope.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Release(ctx context.Context, key, scope string) error
}

// Deps groups the services the handler calls.
type Deps struct {
	Logger      *slog.Logger
	Invoicing   *invoicing.Service
	Billing     *billing.Service
	Fulfillment *fulfillment.Service
	Settings    SettingsProvider
	Idempotency IdempotencyGuard
	Now         func() time.Time
}

// Handler serves the JSON API.
type Handler struct {
	logger      *slog.Logger
	invoicing   *invoicing.Service
	billing     *billing.Service
	fulfillment *fulfillment.Service
	settings    SettingsProvider
	idempotency IdempotencyGuard
	validate    *validator.Validate
	responder   *httpx.Responder
	now         func() time.Time
}

// NewHandler builds the API handler.
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		logger:      logger,
		invoicing:   deps.Invoicing,
		billing:     deps.Billing,
		fulfillment: deps.Fulfillment,
		settings:    deps.Settings,
		idempotency: deps.Idempotency,
		validate:    validator.New(),
		responder:   newResponder(logger),
		now:         now,
	}
}

// Routes returns the versioned API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

// MountRoutes registers API routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/tax/compute", h.computeTax)
	r.Get("/fiscal-year", h.fiscalYear)

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Post("/{id}/send", h.sendInvoice)
		r.Post("/{id}/post", h.postInvoice)
		r.Post("/{id}/reverse", h.reverseInvoice)
		r.Post("/{id}/cancel", h.cancelInvoice)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.createPayment)
		r.Post("/{id}/post", h.postPayment)
		r.Post("/{id}/reverse", h.reversePayment)
		r.Post("/{id}/cancel", h.cancelPayment)
	})

	r.Route("/proforma-invoices", func(r chi.Router) {
		r.Post("/", h.createProforma)
		r.Post("/{id}/convert", h.convertProforma)
	})

	r.Route("/client-pos", func(r chi.Router) {
		r.Post("/", h.createClientPO)
		r.Post("/{id}/schedules/generate", h.generateSchedules)
		r.Post("/{id}/fulfillment", h.recomputeFulfillment)
	})

	r.Route("/schedules/{id}", func(r chi.Router) {
		r.Patch("/", h.updateSchedule)
		r.Delete("/", h.deleteSchedule)
		r.Post("/invoice", h.invoiceFromSchedule)
		r.Post("/proforma", h.proformaFromSchedule)
	})

	r.Post("/journals", h.postJournal)
}

func (h *Handler) computeTax(w http.ResponseWriter, r *http.Request) {
	var req taxComputeRequest
	if !h.decode(w, r, &req) {
		return
	}
	b := tax.ComputeDocument(req.input())
	out := breakdownResponse{Lines: make([]lineResponse, len(b.Lines)), totalsResponse: totals(b.Totals)}
	for i, l := range b.Lines {
		out.Lines[i] = lineAmounts(l)
		out.Lines[i].SerialNo = i + 1
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) fiscalYear(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadSettings(w, r)
	if !ok {
		return
	}
	date := h.now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		var d Date
		if err := d.UnmarshalJSON([]byte(raw)); err != nil {
			h.responder.RespondError(w, r, errors.Join(httpx.ErrMalformedBody, err))
			return
		}
		date = d.Time
	}
	label := fiscal.FinancialYear(date, st.FYStartMonth())
	start, end, err := fiscal.Bounds(label, st.FYStartMonth())
	if err != nil {
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fiscalYearResponse{
		Date:          Date{Time: date},
		FinancialYear: label,
		Start:         Date{Time: start},
		End:           Date{Time: end},
		Quarter:       fiscal.Quarter(date, st.FYStartMonth()),
	})
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, ok := h.loadSettings(w, r)
	if !ok {
		return
	}
	release, ok := h.claim(w, r, "invoices")
	if !ok {
		return
	}
	inv, err := h.invoicing.CreateInvoice(r.Context(), st, req.input())
	if err != nil {
		release()
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice(inv))
}

func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		inv, err := h.invoicing.SendInvoice(ctx, st, id)
		return invoice(inv), err
	})
}

func (h *Handler) postInvoice(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		res, err := h.invoicing.PostInvoice(ctx, st, id)
		return posting(res), err
	})
}

func (h *Handler) reverseInvoice(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		res, err := h.invoicing.ReverseInvoice(ctx, st, id)
		return posting(res), err
	})
}

func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		inv, err := h.invoicing.CancelInvoice(ctx, st, id)
		return invoice(inv), err
	})
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, ok := h.loadSettings(w, r)
	if !ok {
		return
	}
	release, ok := h.claim(w, r, "payments")
	if !ok {
		return
	}
	outcome, err := h.invoicing.CreatePayment(r.Context(), st, req.input())
	var deferred *invoicing.PaymentPostingDeferredError
	switch {
	case errors.As(err, &deferred):
		h.logger.Warn("payment saved without posting",
			slog.Int64("payment_id", deferred.PaymentID),
			slog.Bool("retry_queued", deferred.Enqueued),
		)
		httpx.JSON(w, http.StatusAccepted, paymentOutcomeResponse{
			Payment:  payment(outcome.Payment),
			Deferred: &deferredResponse{Reason: deferred.Err.Error(), RetryQueued: deferred.Enqueued},
		})
	case err != nil:
		release()
		h.responder.RespondError(w, r, err)
	default:
		out := paymentOutcomeResponse{Payment: payment(outcome.Payment)}
		if outcome.Posting != nil {
			p := posting(*outcome.Posting)
			out.Posting = &p
		}
		httpx.JSON(w, http.StatusCreated, out)
	}
}

func (h *Handler) postPayment(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		res, err := h.invoicing.PostPayment(ctx, st, id)
		return posting(res), err
	})
}

func (h *Handler) reversePayment(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		res, err := h.invoicing.ReversePayment(ctx, st, id)
		return posting(res), err
	})
}

func (h *Handler) cancelPayment(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		p, err := h.invoicing.CancelPayment(ctx, st, id)
		return payment(p), err
	})
}

func (h *Handler) createProforma(w http.ResponseWriter, r *http.Request) {
	var req proformaRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, ok := h.loadSettings(w, r)
	if !ok {
		return
	}
	pi, err := h.invoicing.CreateProforma(r.Context(), st, req.input())
	if err != nil {
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, proforma(pi))
}

func (h *Handler) convertProforma(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	h.withIDStatus(w, r, http.StatusCreated, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		var date time.Time
		if req.Date != nil {
			date = req.Date.Time
		}
		inv, err := h.invoicing.ConvertProforma(ctx, st, id, date)
		return invoice(inv), err
	})
}

func (h *Handler) createClientPO(w http.ResponseWriter, r *http.Request) {
	var req clientPORequest
	if !h.decode(w, r, &req) {
		return
	}
	st, ok := h.loadSettings(w, r)
	if !ok {
		return
	}
	release, ok := h.claim(w, r, "client-pos")
	if !ok {
		return
	}
	po, err := h.billing.CreateClientPO(r.Context(), st, req.input())
	if err != nil {
		release()
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, clientPO(po))
}

func (h *Handler) generateSchedules(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	created, err := h.billing.GenerateSchedules(r.Context(), id, billing.GenerateRequest{
		Frequency: billing.Frequency(req.Frequency),
		StartDate: req.StartDate.Time,
		EndDate:   datePtr(req.EndDate),
	})
	if err != nil {
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, schedules(created))
}

func (h *Handler) recomputeFulfillment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	po, err := h.fulfillment.RecomputeFulfillment(r.Context(), id)
	if err != nil {
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fulfillmentResponse{
		ID:              po.ID,
		Status:          string(po.Status),
		TotalAmount:     po.TotalAmount,
		InvoicedAmount:  po.InvoicedAmount,
		RemainingAmount: po.RemainingAmount,
	})
}

func (h *Handler) updateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	s, err := h.billing.UpdateSchedule(r.Context(), id, req.update())
	if err != nil {
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, schedule(s))
}

func (h *Handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.billing.DeleteSchedule(r.Context(), id); err != nil {
		h.responder.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invoiceFromSchedule(w http.ResponseWriter, r *http.Request) {
	var req fromScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withIDStatus(w, r, http.StatusCreated, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		inv, err := h.invoicing.CreateInvoiceFromSchedule(ctx, st, id, req.input())
		return invoice(inv), err
	})
}

func (h *Handler) proformaFromSchedule(w http.ResponseWriter, r *http.Request) {
	var req fromScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.withIDStatus(w, r, http.StatusCreated, func(ctx context.Context, st settings.CompanySettings, id int64) (any, error) {
		pi, err := h.invoicing.CreateProformaFromSchedule(ctx, st, id, req.input())
		return proforma(pi), err
	})
}

func (h *Handler) postJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, ok := h.loadSettings(w, r)
	if !ok {
		return
	}
	res, err := h.invoicing.PostJournal(r.Context(), st, req.input())
	if err != nil {
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, posting(res))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		h.responder.RespondError(w, r, err)
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		h.responder.RespondError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) loadSettings(w http.ResponseWriter, r *http.Request) (settings.CompanySettings, bool) {
	st, err := h.settings.CompanySettings(r.Context())
	if err == nil {
		err = st.Validate()
	}
	if err != nil {
		h.responder.RespondError(w, r, err)
		return settings.CompanySettings{}, false
	}
	return st, true
}

// claim reserves the request's idempotency key. The returned func frees it
// again when the operation fails without side effects.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request, scope string) (func(), bool) {
	key := r.Header.Get(IdempotencyHeader)
	if key == "" || h.idempotency == nil {
		return func() {}, true
	}
	if err := h.idempotency.CheckAndInsert(r.Context(), key, scope); err != nil {
		h.responder.RespondError(w, r, err)
		return nil, false
	}
	return func() {
		if err := h.idempotency.Release(context.WithoutCancel(r.Context()), key, scope); err != nil {
			h.logger.Warn("release idempotency key", slog.String("scope", scope), slog.Any("error", err))
		}
	}, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

type idAction func(ctx context.Context, st settings.CompanySettings, id int64) (any, error)

func (h *Handler) withID(w http.ResponseWriter, r *http.Request, fn idAction) {
	h.withIDStatus(w, r, http.StatusOK, fn)
}

func (h *Handler) withIDStatus(w http.ResponseWriter, r *http.Request, status int, fn idAction) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	st, ok := h.loadSettings(w, r)
	if !ok {
		return
	}
	out, err := fn(r.Context(), st, id)
	if err != nil {
		h.responder.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, status, out)
}
