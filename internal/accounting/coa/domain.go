// Package coa holds the chart of accounts and resolves the company's default
// posting accounts.
package coa

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// AccountGroup refines an AccountType for reporting.
type AccountGroup string

const (
	GroupCurrentAssets      AccountGroup = "CURRENT_ASSETS"
	GroupFixedAssets        AccountGroup = "FIXED_ASSETS"
	GroupBankAccounts       AccountGroup = "BANK_ACCOUNTS"
	GroupCashInHand         AccountGroup = "CASH_IN_HAND"
	GroupSundryDebtors      AccountGroup = "SUNDRY_DEBTORS"
	GroupCurrentLiabilities AccountGroup = "CURRENT_LIABILITIES"
	GroupSundryCreditors    AccountGroup = "SUNDRY_CREDITORS"
	GroupDutiesAndTaxes     AccountGroup = "DUTIES_AND_TAXES"
	GroupCapital            AccountGroup = "CAPITAL"
	GroupReservesSurplus    AccountGroup = "RESERVES_SURPLUS"
	GroupSales              AccountGroup = "SALES"
	GroupOtherIncome        AccountGroup = "OTHER_INCOME"
	GroupPurchase           AccountGroup = "PURCHASE"
	GroupDirectExpenses     AccountGroup = "DIRECT_EXPENSES"
	GroupIndirectExpenses   AccountGroup = "INDIRECT_EXPENSES"
	GroupLoansAdvances      AccountGroup = "LOANS_ADVANCES"
)

var groupTypes = map[AccountGroup]AccountType{
	GroupCurrentAssets:      AccountTypeAsset,
	GroupFixedAssets:        AccountTypeAsset,
	GroupBankAccounts:       AccountTypeAsset,
	GroupCashInHand:         AccountTypeAsset,
	GroupSundryDebtors:      AccountTypeAsset,
	GroupLoansAdvances:      AccountTypeAsset,
	GroupCurrentLiabilities: AccountTypeLiability,
	GroupSundryCreditors:    AccountTypeLiability,
	GroupDutiesAndTaxes:     AccountTypeLiability,
	GroupCapital:            AccountTypeEquity,
	GroupReservesSurplus:    AccountTypeEquity,
	GroupSales:              AccountTypeIncome,
	GroupOtherIncome:        AccountTypeIncome,
	GroupPurchase:           AccountTypeExpense,
	GroupDirectExpenses:     AccountTypeExpense,
	GroupIndirectExpenses:   AccountTypeExpense,
}

// Valid reports whether g is a known group.
func (g AccountGroup) Valid() bool {
	_, ok := groupTypes[g]
	return ok
}

// Type returns the account type a group normally belongs to.
// Tax credit ledgers sit under DUTIES_AND_TAXES but are assets; callers store
// the type explicitly on the account.
func (g AccountGroup) Type() AccountType {
	return groupTypes[g]
}

// Account models a chart of accounts node.
type Account struct {
	ID          int64
	Code        string
	Name        string
	Type        AccountType
	Group       AccountGroup
	ParentID    *int64
	Description string
	IsActive    bool
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
