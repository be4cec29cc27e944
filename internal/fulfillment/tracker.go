// Package fulfillment keeps a client PO's invoiced and remaining amounts in
// step with the invoices raised against it.
package fulfillment

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/documents"
)

// Tx is the persistence needed to recompute one PO.
type Tx interface {
	GetClientPOForUpdate(ctx context.Context, id int64) (billing.ClientPO, error)
	ListInvoicesByClientPO(ctx context.Context, poID int64) ([]documents.Invoice, error)
	UpdateClientPOFulfillment(ctx context.Context, po billing.ClientPO) error
}

// RepositoryPort opens transactions for standalone recomputes.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// Apply recomputes invoiced, remaining and status from the invoice set.
// Cancelled invoices are ignored. With nothing invoiced, draft, cancelled and
// expired POs keep their status and any other PO becomes active.
func Apply(po billing.ClientPO, invoices []documents.Invoice) billing.ClientPO {
	invoiced := decimal.Zero
	for _, inv := range invoices {
		if inv.CountsTowardFulfillment() {
			invoiced = invoiced.Add(inv.TotalAmount)
		}
	}
	po.InvoicedAmount = invoiced
	po.RemainingAmount = po.TotalAmount.Sub(invoiced)

	switch {
	case invoiced.IsZero():
		switch po.Status {
		case billing.ClientPODraft, billing.ClientPOCancelled, billing.ClientPOExpired:
		default:
			po.Status = billing.ClientPOActive
		}
	case invoiced.GreaterThanOrEqual(po.TotalAmount):
		po.Status = billing.ClientPOCompleted
	default:
		po.Status = billing.ClientPOPartial
	}
	return po
}

// Tracker recomputes fulfillment inside a caller's transaction.
type Tracker struct {
	logger *slog.Logger
}

// NewTracker constructs the tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger}
}

// Recompute locks the PO, recomputes it from its invoices and persists the result.
func (t *Tracker) Recompute(ctx context.Context, tx Tx, poID int64) (billing.ClientPO, error) {
	po, err := tx.GetClientPOForUpdate(ctx, poID)
	if err != nil {
		return billing.ClientPO{}, err
	}
	invoices, err := tx.ListInvoicesByClientPO(ctx, poID)
	if err != nil {
		return billing.ClientPO{}, err
	}
	updated := Apply(po, invoices)
	if err := tx.UpdateClientPOFulfillment(ctx, updated); err != nil {
		return billing.ClientPO{}, err
	}
	if updated.Status != po.Status {
		t.logger.InfoContext(ctx, "client po status changed",
			slog.Int64("client_po_id", poID),
			slog.String("from", string(po.Status)),
			slog.String("to", string(updated.Status)),
		)
	}
	return updated, nil
}

// Service runs recomputes in their own transaction.
type Service struct {
	repo    RepositoryPort
	tracker *Tracker
}

// NewService constructs the standalone fulfillment service.
func NewService(repo RepositoryPort, tracker *Tracker) *Service {
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	return &Service{repo: repo, tracker: tracker}
}

// RecomputeFulfillment recomputes one PO.
func (s *Service) RecomputeFulfillment(ctx context.Context, poID int64) (billing.ClientPO, error) {
	var out billing.ClientPO
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		po, err := s.tracker.Recompute(ctx, tx, poID)
		out = po
		return err
	})
	return out, err
}
