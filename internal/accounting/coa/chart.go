package coa

import (
	"context"
	"errors"
	"fmt"

	"github.com/gstbooks/gstbooks/internal/shared"
)

// ChartEntry describes one account of the standard chart.
type ChartEntry struct {
	Code        string
	Name        string
	Type        AccountType
	Group       AccountGroup
	Description string
	Default     DefaultAccount
}

// DefaultChart is the standard Indian GST chart seeded for new companies.
var DefaultChart = []ChartEntry{
	{Code: "1000", Name: "Cash", Type: AccountTypeAsset, Group: GroupCashInHand, Description: "Cash in hand", Default: DefaultCash},
	{Code: "1010", Name: "Bank Account", Type: AccountTypeAsset, Group: GroupBankAccounts, Description: "Primary bank account", Default: DefaultBank},
	{Code: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, Group: GroupSundryDebtors, Description: "Amounts owed by customers", Default: DefaultAccountsReceivable},
	{Code: "1200", Name: "CGST Input", Type: AccountTypeAsset, Group: GroupDutiesAndTaxes, Description: "CGST input tax credit", Default: DefaultCGSTInput},
	{Code: "1210", Name: "SGST Input", Type: AccountTypeAsset, Group: GroupDutiesAndTaxes, Description: "SGST input tax credit", Default: DefaultSGSTInput},
	{Code: "1220", Name: "IGST Input", Type: AccountTypeAsset, Group: GroupDutiesAndTaxes, Description: "IGST input tax credit", Default: DefaultIGSTInput},
	{Code: "1230", Name: "Cess Input", Type: AccountTypeAsset, Group: GroupDutiesAndTaxes, Description: "Compensation cess input credit", Default: DefaultCessInput},
	{Code: "1300", Name: "TDS Receivable", Type: AccountTypeAsset, Group: GroupCurrentAssets, Description: "TDS deducted by customers", Default: DefaultTDSReceivable},
	{Code: "1310", Name: "TCS Receivable", Type: AccountTypeAsset, Group: GroupCurrentAssets, Description: "TCS collected by vendors", Default: DefaultTCSReceivable},
	{Code: "2100", Name: "Accounts Payable", Type: AccountTypeLiability, Group: GroupSundryCreditors, Description: "Amounts owed to vendors", Default: DefaultAccountsPayable},
	{Code: "2200", Name: "CGST Output", Type: AccountTypeLiability, Group: GroupDutiesAndTaxes, Description: "CGST collected on sales", Default: DefaultCGSTOutput},
	{Code: "2210", Name: "SGST Output", Type: AccountTypeLiability, Group: GroupDutiesAndTaxes, Description: "SGST collected on sales", Default: DefaultSGSTOutput},
	{Code: "2220", Name: "IGST Output", Type: AccountTypeLiability, Group: GroupDutiesAndTaxes, Description: "IGST collected on sales", Default: DefaultIGSTOutput},
	{Code: "2230", Name: "Cess Output", Type: AccountTypeLiability, Group: GroupDutiesAndTaxes, Description: "Compensation cess collected on sales", Default: DefaultCessOutput},
	{Code: "2300", Name: "TDS Payable", Type: AccountTypeLiability, Group: GroupDutiesAndTaxes, Description: "TDS deducted from vendors", Default: DefaultTDSPayable},
	{Code: "2310", Name: "TCS Payable", Type: AccountTypeLiability, Group: GroupDutiesAndTaxes, Description: "TCS collected from customers", Default: DefaultTCSPayable},
	{Code: "3000", Name: "Capital Account", Type: AccountTypeEquity, Group: GroupCapital, Description: "Owner's capital"},
	{Code: "3100", Name: "Retained Earnings", Type: AccountTypeEquity, Group: GroupReservesSurplus, Description: "Accumulated profits"},
	{Code: "4000", Name: "Sales", Type: AccountTypeIncome, Group: GroupSales, Description: "Revenue from sales", Default: DefaultSales},
	{Code: "4100", Name: "Other Income", Type: AccountTypeIncome, Group: GroupOtherIncome, Description: "Miscellaneous income"},
	{Code: "5000", Name: "Purchases", Type: AccountTypeExpense, Group: GroupPurchase, Description: "Cost of purchases", Default: DefaultPurchase},
	{Code: "5100", Name: "Direct Expenses", Type: AccountTypeExpense, Group: GroupDirectExpenses, Description: "Direct operating expenses"},
	{Code: "5900", Name: "Round Off", Type: AccountTypeExpense, Group: GroupIndirectExpenses, Description: "Rounding differences", Default: DefaultRoundOff},
}

// SeedTx is the persistence needed to seed the chart.
type SeedTx interface {
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	InsertAccount(ctx context.Context, account Account) (Account, error)
}

// Seed creates every DefaultChart account that does not exist yet and returns
// the default-account map pointing at the seeded (or existing) rows.
func Seed(ctx context.Context, tx SeedTx) (map[DefaultAccount]int64, error) {
	defaults := make(map[DefaultAccount]int64)
	for _, entry := range DefaultChart {
		account, err := tx.GetAccountByCode(ctx, entry.Code)
		switch {
		case err == nil:
		case errors.Is(err, shared.ErrNotFound):
			account, err = tx.InsertAccount(ctx, Account{
				Code:        entry.Code,
				Name:        entry.Name,
				Type:        entry.Type,
				Group:       entry.Group,
				Description: entry.Description,
				IsActive:    true,
				IsSystem:    true,
			})
			if err != nil {
				return nil, fmt.Errorf("coa: seed %s: %w", entry.Code, err)
			}
		default:
			return nil, fmt.Errorf("coa: lookup %s: %w", entry.Code, err)
		}
		if entry.Default != "" {
			defaults[entry.Default] = account.ID
		}
	}
	return defaults, nil
}
