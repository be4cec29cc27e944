// Package settings models the company-level configuration that drives posting
// and numbering. Values are loaded per request and passed explicitly.
package settings

import (
	"errors"
	"fmt"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
	"github.com/gstbooks/gstbooks/internal/fiscal"
)

// PostingTrigger selects when invoices reach the ledger.
type PostingTrigger string

const (
	PostOnCreate PostingTrigger = "ON_CREATE"
	PostOnSent   PostingTrigger = "ON_SENT"
)

// MissingAccountPolicy selects how posting treats an unconfigured default account.
type MissingAccountPolicy string

const (
	// PolicyStrict fails the posting and writes nothing.
	PolicyStrict MissingAccountPolicy = "STRICT"
	// PolicyWarn skips the leg, logs it and reports it on the posting result.
	PolicyWarn MissingAccountPolicy = "WARN"
)

// ErrInvalidSettings wraps validation failures.
var ErrInvalidSettings = errors.New("settings: invalid company settings")

// CompanySettings is the tenant configuration.
type CompanySettings struct {
	ID                      int64
	CompanyName             string
	GSTIN                   string
	StateCode               string
	FinancialYearStartMonth int
	LedgerPostingOn         PostingTrigger
	MissingAccountPolicy    MissingAccountPolicy
	DefaultAccounts         map[coa.DefaultAccount]int64
}

// Registry returns a read-only view of the default accounts.
func (s CompanySettings) Registry() coa.Registry {
	return coa.NewRegistry(s.DefaultAccounts)
}

// FYStartMonth returns the configured start month, defaulting to April.
func (s CompanySettings) FYStartMonth() int {
	return int(fiscal.Normalize(s.FinancialYearStartMonth))
}

// PostingTrigger returns the trigger, defaulting to ON_SENT.
func (s CompanySettings) PostingTrigger() PostingTrigger {
	if s.LedgerPostingOn == PostOnCreate {
		return PostOnCreate
	}
	return PostOnSent
}

// Policy returns the missing-account policy, defaulting to STRICT.
func (s CompanySettings) Policy() MissingAccountPolicy {
	if s.MissingAccountPolicy == PolicyWarn {
		return PolicyWarn
	}
	return PolicyStrict
}

// Validate checks enumerations and account ids.
func (s CompanySettings) Validate() error {
	if s.FinancialYearStartMonth < 1 || s.FinancialYearStartMonth > 12 {
		return fmt.Errorf("%w: financial year start month %d", ErrInvalidSettings, s.FinancialYearStartMonth)
	}
	switch s.LedgerPostingOn {
	case PostOnCreate, PostOnSent:
	default:
		return fmt.Errorf("%w: ledger posting trigger %q", ErrInvalidSettings, s.LedgerPostingOn)
	}
	switch s.MissingAccountPolicy {
	case PolicyStrict, PolicyWarn, "":
	default:
		return fmt.Errorf("%w: missing account policy %q", ErrInvalidSettings, s.MissingAccountPolicy)
	}
	for key, id := range s.DefaultAccounts {
		if !key.Valid() {
			return fmt.Errorf("%w: unknown default account %q", ErrInvalidSettings, key)
		}
		if id < 0 {
			return fmt.Errorf("%w: default account %s has negative id", ErrInvalidSettings, key)
		}
	}
	return nil
}

// Defaults returns settings for a fresh company.
func Defaults() CompanySettings {
	return CompanySettings{
		FinancialYearStartMonth: int(fiscal.DefaultStartMonth),
		LedgerPostingOn:         PostOnSent,
		MissingAccountPolicy:    PolicyStrict,
		DefaultAccounts:         map[coa.DefaultAccount]int64{},
	}
}
