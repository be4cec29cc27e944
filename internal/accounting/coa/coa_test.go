package coa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gstbooks/gstbooks/internal/shared"
)

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(map[DefaultAccount]int64{DefaultSales: 40, DefaultBank: 0})

	id, err := reg.Resolve(DefaultSales)
	require.NoError(t, err)
	require.EqualValues(t, 40, id)

	_, err = reg.Resolve(DefaultBank)
	require.ErrorIs(t, err, ErrMissingDefaultAccount)
	var missing *MissingDefaultAccountError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []DefaultAccount{DefaultBank}, missing.Keys)
}

func TestRegistryMissingDeduplicates(t *testing.T) {
	reg := NewRegistry(map[DefaultAccount]int64{DefaultSales: 1})
	require.Equal(t,
		[]DefaultAccount{DefaultCGSTOutput, DefaultRoundOff},
		reg.Missing(DefaultSales, DefaultCGSTOutput, DefaultRoundOff, DefaultCGSTOutput),
	)
}

func TestRegistryIsolatedFromCallerMap(t *testing.T) {
	ids := map[DefaultAccount]int64{DefaultSales: 1}
	reg := NewRegistry(ids)
	ids[DefaultSales] = 99
	snap := reg.Snapshot()
	snap[DefaultSales] = 42
	id, err := reg.Resolve(DefaultSales)
	require.NoError(t, err)
	require.EqualValues(t, 1, id)
}

func TestDefaultChartCoversEveryRole(t *testing.T) {
	covered := map[DefaultAccount]bool{}
	codes := map[string]bool{}
	for _, entry := range DefaultChart {
		require.True(t, entry.Type.Valid(), entry.Code)
		require.True(t, entry.Group.Valid(), entry.Code)
		require.False(t, codes[entry.Code], "duplicate code %s", entry.Code)
		codes[entry.Code] = true
		if entry.Default != "" {
			covered[entry.Default] = true
		}
	}
	for _, key := range AllDefaultAccounts() {
		require.True(t, covered[key], "no chart entry for %s", key)
		require.True(t, key.Valid())
	}
	require.False(t, DefaultAccount("NOPE").Valid())
}

func TestGroupType(t *testing.T) {
	require.Equal(t, AccountTypeAsset, GroupSundryDebtors.Type())
	require.Equal(t, AccountTypeExpense, GroupIndirectExpenses.Type())
	require.False(t, AccountGroup("X").Valid())
}

type stubSeedTx struct {
	accounts map[string]Account
	nextID   int64
	inserts  int
}

func (s *stubSeedTx) GetAccountByCode(_ context.Context, code string) (Account, error) {
	acc, ok := s.accounts[code]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return acc, nil
}

func (s *stubSeedTx) InsertAccount(_ context.Context, account Account) (Account, error) {
	s.nextID++
	s.inserts++
	account.ID = s.nextID
	s.accounts[account.Code] = account
	return account, nil
}

func TestSeedIsIdempotent(t *testing.T) {
	tx := &stubSeedTx{accounts: map[string]Account{"1000": {ID: 500, Code: "1000"}}, nextID: 1000}

	defaults, err := Seed(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, len(DefaultChart)-1, tx.inserts)
	require.EqualValues(t, 500, defaults[DefaultCash])
	require.Len(t, defaults, len(AllDefaultAccounts()))

	again, err := Seed(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, len(DefaultChart)-1, tx.inserts)
	require.Equal(t, defaults, again)
}
