package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotFoundMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("load: %w", NotFound("invoice", 9))
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualError(t, err, "load: invoice 9 not found")

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "invoice", nf.Entity)
}

func TestPostingLockKey(t *testing.T) {
	require.Equal(t, "ledger:posting:PAYMENT:4:lock", PostingLockKey("PAYMENT", 4))
}

func TestUninitialisedStores(t *testing.T) {
	ctx := context.Background()
	require.Error(t, (*AuditLogger)(nil).Record(ctx, AuditLog{Action: "a", Entity: "b", EntityID: "1"}))
	require.ErrorIs(t, AuditLog{Action: "invoice.cancel", Entity: "invoice"}.validate(), ErrInvalidAuditLog)
	require.NoError(t, AuditLog{Action: "invoice.cancel", Entity: "invoice", EntityID: "3"}.validate())
	require.Error(t, NewIdempotencyStore(nil).CheckAndInsert(ctx, "k", "invoices"))
	require.NoError(t, NewIdempotencyStore(nil).Release(ctx, "k", "invoices"))
	removed, err := NewIdempotencyStore(nil).Cleanup(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, removed)
}
