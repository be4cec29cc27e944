package invoicing

import (
	"context"

	"github.com/gstbooks/gstbooks/internal/accounting/ledger"
	"github.com/gstbooks/gstbooks/internal/settings"
)

// PostJournal writes a manual or opening voucher.
func (s *Service) PostJournal(ctx context.Context, st settings.CompanySettings, in ledger.JournalInput) (ledger.Result, error) {
	var res ledger.Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		res, err = s.engine.PostJournal(ctx, tx, in, st)
		return err
	})
	return res, err
}
