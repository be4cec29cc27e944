// Package store is the PostgreSQL implementation of the document, billing and
// ledger persistence ports. One Tx serves every port so a document change, its
// voucher and the PO recompute commit together.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gstbooks/gstbooks/internal/billing"
	"github.com/gstbooks/gstbooks/internal/fulfillment"
	"github.com/gstbooks/gstbooks/internal/invoicing"
	"github.com/gstbooks/gstbooks/internal/platform/db"
	"github.com/gstbooks/gstbooks/internal/shared"
)

// Store opens transactions against the pool.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn inside a RepeatableRead transaction.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Tx{tx: tx})
	})
}

// Tx implements every persistence port on one pgx transaction.
type Tx struct {
	tx pgx.Tx
}

type invoicingPort struct{ s *Store }

func (p invoicingPort) WithTx(ctx context.Context, fn func(context.Context, invoicing.TxRepository) error) error {
	return p.s.WithTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type billingPort struct{ s *Store }

func (p billingPort) WithTx(ctx context.Context, fn func(context.Context, billing.TxRepository) error) error {
	return p.s.WithTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type fulfillmentPort struct{ s *Store }

func (p fulfillmentPort) WithTx(ctx context.Context, fn func(context.Context, fulfillment.Tx) error) error {
	return p.s.WithTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

// Invoicing adapts the store to the invoicing service.
func (s *Store) Invoicing() invoicing.RepositoryPort { return invoicingPort{s} }

// Billing adapts the store to the billing service.
func (s *Store) Billing() billing.RepositoryPort { return billingPort{s} }

// Fulfillment adapts the store to the fulfillment service.
func (s *Store) Fulfillment() fulfillment.RepositoryPort { return fulfillmentPort{s} }

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound(entity, id)
	}
	return err
}
