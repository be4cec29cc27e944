package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gstbooks/gstbooks/internal/fiscal"
	"github.com/gstbooks/gstbooks/internal/numbering"
	"github.com/gstbooks/gstbooks/internal/settings"
)

// ErrInvalidClientPO wraps client PO validation failures.
var ErrInvalidClientPO = errors.New("billing: invalid client PO")

// POItemInput is a user-entered PO line.
type POItemInput struct {
	Description string
	HSNSAC      string
	Unit        string
	ItemInput
}

// CreateClientPOInput carries a new client PO. Date places the internal number
// in a financial year and defaults to today.
type CreateClientPOInput struct {
	ClientPONumber  string
	ClientID        int64
	BranchID        int64
	Subject         string
	Date            time.Time
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	Frequency       Frequency
	IsIGST          bool
	PlaceOfSupply   string
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	Items           []POItemInput
}

func (in CreateClientPOInput) check() error {
	switch {
	case in.ClientID <= 0:
		return fmt.Errorf("%w: client is required", ErrInvalidClientPO)
	case in.BranchID <= 0:
		return fmt.Errorf("%w: branch is required", ErrInvalidClientPO)
	case len(in.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrInvalidClientPO)
	case in.Frequency != "" && !in.Frequency.Valid():
		return fmt.Errorf("%w: frequency %q", ErrInvalidClientPO, in.Frequency)
	case in.ValidFrom != nil && in.ValidUntil != nil && in.ValidUntil.Before(*in.ValidFrom):
		return fmt.Errorf("%w: valid_until precedes valid_from", ErrInvalidClientPO)
	case in.DiscountPercent.IsNegative() || in.DiscountAmount.IsNegative():
		return fmt.Errorf("%w: discount cannot be negative", ErrInvalidClientPO)
	}
	for i, item := range in.Items {
		if item.Quantity.IsNegative() || item.Rate.IsNegative() {
			return fmt.Errorf("%w: item %d has a negative quantity or rate", ErrInvalidClientPO, i+1)
		}
		if r := item.EffectiveGSTRate(); r.IsNegative() {
			return fmt.Errorf("%w: item %d has a negative GST rate", ErrInvalidClientPO, i+1)
		}
	}
	return nil
}

// CreateClientPO totals, numbers and stores a draft client PO.
func (s *Service) CreateClientPO(ctx context.Context, st settings.CompanySettings, in CreateClientPOInput) (ClientPO, error) {
	if err := in.check(); err != nil {
		return ClientPO{}, err
	}
	freq := in.Frequency
	if freq == "" {
		freq = FrequencyMonthly
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	po := ClientPO{
		ClientPONumber:  in.ClientPONumber,
		ClientID:        in.ClientID,
		BranchID:        in.BranchID,
		Subject:         in.Subject,
		ValidFrom:       in.ValidFrom,
		ValidUntil:      in.ValidUntil,
		Frequency:       freq,
		IsIGST:          in.IsIGST,
		PlaceOfSupply:   in.PlaceOfSupply,
		Status:          ClientPODraft,
		DiscountPercent: in.DiscountPercent,
		InvoicedAmount:  decimal.Zero,
		Items:           make([]ClientPOItem, len(in.Items)),
	}
	inputs := make([]ItemInput, len(in.Items))
	for i, item := range in.Items {
		unit := item.Unit
		if unit == "" {
			unit = "NOS"
		}
		po.Items[i] = ClientPOItem{
			Description: item.Description,
			HSNSAC:      item.HSNSAC,
			Unit:        unit,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			GSTRate:     item.EffectiveGSTRate(),
		}
		inputs[i] = item.ItemInput
	}
	po.ApplyTotals(ComputePOTotals(inputs, in.IsIGST, in.DiscountPercent, in.DiscountAmount))

	var created ClientPO
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		fy := fiscal.FinancialYear(date, st.FYStartMonth())
		number, err := numbering.NewService(tx).Next(ctx, numbering.PrefixClientPO, fy)
		if err != nil {
			return err
		}
		po.InternalNumber = number
		created, err = tx.InsertClientPO(ctx, po)
		return err
	})
	if err != nil {
		return ClientPO{}, err
	}
	s.logger.InfoContext(ctx, "client po created",
		slog.Int64("client_po_id", created.ID),
		slog.String("number", created.InternalNumber),
		slog.String("total", created.TotalAmount.StringFixed(2)),
	)
	return created, nil
}
