package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/settings"
)

// CompanySettings loads the company row. A fresh database yields the defaults.
func (s *Store) CompanySettings(ctx context.Context) (settings.CompanySettings, error) {
	var (
		cs       settings.CompanySettings
		accounts []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_name, gstin, state_code, fy_start_month, ledger_posting_on,
		       missing_account_policy, default_accounts
		FROM company_settings ORDER BY id LIMIT 1`).Scan(
		&cs.ID, &cs.CompanyName, &cs.GSTIN, &cs.StateCode, &cs.FinancialYearStartMonth,
		&cs.LedgerPostingOn, &cs.MissingAccountPolicy, &accounts,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return settings.Defaults(), nil
	}
	if err != nil {
		return settings.CompanySettings{}, err
	}
	cs.DefaultAccounts = map[coa.DefaultAccount]int64{}
	if err := json.Unmarshal(accounts, &cs.DefaultAccounts); err != nil {
		return settings.CompanySettings{}, fmt.Errorf("store: decode default accounts: %w", err)
	}
	return cs, nil
}

// SaveCompanySettings validates and upserts the company row.
func (s *Store) SaveCompanySettings(ctx context.Context, cs settings.CompanySettings) (settings.CompanySettings, error) {
	if err := cs.Validate(); err != nil {
		return settings.CompanySettings{}, err
	}
	return cs, s.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		cs.ID, err = tx.saveSettings(ctx, cs)
		return err
	})
}

// SeedAccounts creates the default chart and points every unset default
// account at the seeded rows, in one transaction.
func (s *Store) SeedAccounts(ctx context.Context) (settings.CompanySettings, error) {
	cs, err := s.CompanySettings(ctx)
	if err != nil {
		return settings.CompanySettings{}, err
	}
	err = s.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		seeded, err := coa.Seed(ctx, tx)
		if err != nil {
			return err
		}
		if cs.DefaultAccounts == nil {
			cs.DefaultAccounts = map[coa.DefaultAccount]int64{}
		}
		for key, id := range seeded {
			if cs.DefaultAccounts[key] == 0 {
				cs.DefaultAccounts[key] = id
			}
		}
		cs.ID, err = tx.saveSettings(ctx, cs)
		return err
	})
	return cs, err
}

func (t *Tx) saveSettings(ctx context.Context, cs settings.CompanySettings) (int64, error) {
	accounts, err := json.Marshal(cs.DefaultAccounts)
	if err != nil {
		return 0, err
	}
	if cs.ID == 0 {
		var id int64
		err = t.tx.QueryRow(ctx, `
			INSERT INTO company_settings (company_name, gstin, state_code, fy_start_month, ledger_posting_on,
				missing_account_policy, default_accounts)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			cs.CompanyName, cs.GSTIN, cs.StateCode, cs.FinancialYearStartMonth, string(cs.LedgerPostingOn),
			string(cs.MissingAccountPolicy), accounts,
		).Scan(&id)
		return id, err
	}
	_, err = t.tx.Exec(ctx, `
		UPDATE company_settings SET company_name = $2, gstin = $3, state_code = $4, fy_start_month = $5,
			ledger_posting_on = $6, missing_account_policy = $7, default_accounts = $8, updated_at = NOW()
		WHERE id = $1`,
		cs.ID, cs.CompanyName, cs.GSTIN, cs.StateCode, cs.FinancialYearStartMonth, string(cs.LedgerPostingOn),
		string(cs.MissingAccountPolicy), accounts)
	return cs.ID, err
}
