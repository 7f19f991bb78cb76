// Package plugin lets extensions observe billing events. Hooks run after
// the financial change has committed; a failing or slow hook is logged and
// never affects the operation that triggered it.
package plugin

import (
	"context"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Bill hooks
// ──────────────────────────────────────────────────

// OnBillGenerated is called for every new bill. batch is true when the
// bill came from a month-wide run.
type OnBillGenerated interface {
	Plugin
	OnBillGenerated(ctx context.Context, b *bill.Bill, actor string, batch bool) error
}

// OnBillGenerationFailed is called when a reading could not be billed.
type OnBillGenerationFailed interface {
	Plugin
	OnBillGenerationFailed(ctx context.Context, readingID string, cause error) error
}

// OnBatchCompleted is called after a month-wide run.
type OnBatchCompleted interface {
	Plugin
	OnBatchCompleted(ctx context.Context, summary *bill.BatchSummary, actor string) error
}

// OnReminderSent is called after a due or overdue reminder went out.
type OnReminderSent interface {
	Plugin
	OnReminderSent(ctx context.Context, b *bill.Bill, overdue bool) error
}

// ──────────────────────────────────────────────────
// Payment and wallet hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded is called for every external payment posted.
type OnPaymentRecorded interface {
	Plugin
	OnPaymentRecorded(ctx context.Context, p *payment.Payment, b *bill.Bill, actor string) error
}

// OnAdvanceApplied is called when wallet credit settled part of a bill.
// automatic is true when it happened during bill generation.
type OnAdvanceApplied interface {
	Plugin
	OnAdvanceApplied(ctx context.Context, p *payment.Payment, b *bill.Bill, actor string, automatic bool) error
}

// OnAdvanceDeposited is called when credit is added to a wallet.
type OnAdvanceDeposited interface {
	Plugin
	OnAdvanceDeposited(ctx context.Context, c *account.Customer, amount types.Money, actor string) error
}
