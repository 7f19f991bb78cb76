// Package store defines the unified persistence interface the billing
// engine runs against. Backends live in the subpackages.
package store

import (
	"context"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/latefee"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/reading"
	"github.com/xraph/billing/subsidy"
	"github.com/xraph/billing/tariff"
)

// Store is the unified storage interface for all billing entities.
type Store interface {
	account.Store
	tariff.Store
	charge.Store
	subsidy.Store
	latefee.Store
	reading.Store
	bill.Store
	payment.Store

	// Atomic runs fn as one unit of work. Store calls made with the ctx
	// passed to fn join the unit; it commits when fn returns nil and rolls
	// back otherwise. Nested calls join the outer unit.
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
