package coa

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultAccount names a role the posting engine needs an account for.
type DefaultAccount string

const (
	DefaultSales              DefaultAccount = "SALES"
	DefaultPurchase           DefaultAccount = "PURCHASE"
	DefaultAccountsReceivable DefaultAccount = "ACCOUNTS_RECEIVABLE"
	DefaultAccountsPayable    DefaultAccount = "ACCOUNTS_PAYABLE"
	DefaultCash               DefaultAccount = "CASH"
	DefaultBank               DefaultAccount = "BANK"
	DefaultCGSTOutput         DefaultAccount = "CGST_OUTPUT"
	DefaultSGSTOutput         DefaultAccount = "SGST_OUTPUT"
	DefaultIGSTOutput         DefaultAccount = "IGST_OUTPUT"
	DefaultCGSTInput          DefaultAccount = "CGST_INPUT"
	DefaultSGSTInput          DefaultAccount = "SGST_INPUT"
	DefaultIGSTInput          DefaultAccount = "IGST_INPUT"
	DefaultTDSReceivable      DefaultAccount = "TDS_RECEIVABLE"
	DefaultTDSPayable         DefaultAccount = "TDS_PAYABLE"
	DefaultRoundOff           DefaultAccount = "ROUND_OFF"
	DefaultCessOutput         DefaultAccount = "CESS_OUTPUT"
	DefaultCessInput          DefaultAccount = "CESS_INPUT"
	DefaultTCSPayable         DefaultAccount = "TCS_PAYABLE"
	DefaultTCSReceivable      DefaultAccount = "TCS_RECEIVABLE"
)

// AllDefaultAccounts lists every default-account role.
func AllDefaultAccounts() []DefaultAccount {
	return []DefaultAccount{
		DefaultSales, DefaultPurchase,
		DefaultAccountsReceivable, DefaultAccountsPayable,
		DefaultCash, DefaultBank,
		DefaultCGSTOutput, DefaultSGSTOutput, DefaultIGSTOutput,
		DefaultCGSTInput, DefaultSGSTInput, DefaultIGSTInput,
		DefaultTDSReceivable, DefaultTDSPayable,
		DefaultRoundOff,
		DefaultCessOutput, DefaultCessInput,
		DefaultTCSPayable, DefaultTCSReceivable,
	}
}

// Valid reports whether k is a known role.
func (k DefaultAccount) Valid() bool {
	for _, candidate := range AllDefaultAccounts() {
		if candidate == k {
			return true
		}
	}
	return false
}

// ErrMissingDefaultAccount matches any MissingDefaultAccountError.
var ErrMissingDefaultAccount = errors.New("coa: default account not configured")

// MissingDefaultAccountError lists roles that have no account configured.
type MissingDefaultAccountError struct {
	Keys []DefaultAccount
}

func (e *MissingDefaultAccountError) Error() string {
	names := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		names[i] = string(k)
	}
	return fmt.Sprintf("coa: default account not configured: %s", strings.Join(names, ", "))
}

// Is matches ErrMissingDefaultAccount.
func (e *MissingDefaultAccountError) Is(target error) bool {
	return target == ErrMissingDefaultAccount
}

// Registry resolves default-account roles to account ids. It is read-only.
type Registry struct {
	ids map[DefaultAccount]int64
}

// NewRegistry copies ids into a registry. Zero ids are treated as unset.
func NewRegistry(ids map[DefaultAccount]int64) Registry {
	copied := make(map[DefaultAccount]int64, len(ids))
	for k, v := range ids {
		if v > 0 {
			copied[k] = v
		}
	}
	return Registry{ids: copied}
}

// Resolve returns the account id configured for key.
func (r Registry) Resolve(key DefaultAccount) (int64, error) {
	id, ok := r.ids[key]
	if !ok {
		return 0, &MissingDefaultAccountError{Keys: []DefaultAccount{key}}
	}
	return id, nil
}

// Missing returns the subset of keys with no account configured, in input order.
func (r Registry) Missing(keys ...DefaultAccount) []DefaultAccount {
	var missing []DefaultAccount
	seen := make(map[DefaultAccount]bool, len(keys))
	for _, k := range keys {
		if _, ok := r.ids[k]; ok || seen[k] {
			continue
		}
		seen[k] = true
		missing = append(missing, k)
	}
	return missing
}

// Snapshot returns a copy of the configured roles.
func (r Registry) Snapshot() map[DefaultAccount]int64 {
	out := make(map[DefaultAccount]int64, len(r.ids))
	for k, v := range r.ids {
		out[k] = v
	}
	return out
}

// Configured lists configured roles in a stable order.
func (r Registry) Configured() []DefaultAccount {
	keys := make([]DefaultAccount, 0, len(r.ids))
	for k := range r.ids {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
