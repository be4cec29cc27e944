package settings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gstbooks/gstbooks/internal/accounting/coa"
)

func TestDefaultsAreValid(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())
	require.Equal(t, PostOnSent, s.PostingTrigger())
	require.Equal(t, PolicyStrict, s.Policy())
	require.Equal(t, 4, s.FYStartMonth())
}

func TestZeroValueFallsBack(t *testing.T) {
	var s CompanySettings
	require.Equal(t, PostOnSent, s.PostingTrigger())
	require.Equal(t, PolicyStrict, s.Policy())
	require.Equal(t, 4, s.FYStartMonth())
	require.ErrorIs(t, s.Validate(), ErrInvalidSettings)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	s := Defaults()
	s.LedgerPostingOn = "ON_PAID"
	require.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = Defaults()
	s.MissingAccountPolicy = "IGNORE"
	require.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s = Defaults()
	s.DefaultAccounts[coa.DefaultAccount("BOGUS")] = 1
	require.ErrorIs(t, s.Validate(), ErrInvalidSettings)
}

func TestRegistryReflectsDefaultAccounts(t *testing.T) {
	s := Defaults()
	s.DefaultAccounts[coa.DefaultSales] = 7
	id, err := s.Registry().Resolve(coa.DefaultSales)
	require.NoError(t, err)
	require.EqualValues(t, 7, id)
}
