// Package observability provides a metrics extension for the billing engine
// that records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/plugin"
	"github.com/xraph/billing/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnBillGenerated        = (*MetricsExtension)(nil)
	_ plugin.OnBillGenerationFailed = (*MetricsExtension)(nil)
	_ plugin.OnBatchCompleted       = (*MetricsExtension)(nil)
	_ plugin.OnReminderSent         = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRecorded      = (*MetricsExtension)(nil)
	_ plugin.OnAdvanceApplied       = (*MetricsExtension)(nil)
	_ plugin.OnAdvanceDeposited     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide billing metrics.
// Register it as an engine plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Bill metrics
	BillGenerated      Counter
	BillBatchGenerated Counter
	BillFailed         Counter
	BillNetPayable     Histogram

	// Batch metrics
	BatchCompleted Counter
	BatchSkipped   Counter

	// Reminder metrics
	ReminderSent        Counter
	OverdueReminderSent Counter

	// Payment metrics
	PaymentRecorded Counter
	PaymentAmount   Histogram

	// Wallet metrics
	AdvanceApplied     Counter
	AdvanceAutoApplied Counter
	AdvanceDeposited   Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		BillGenerated:      factory.Counter("billing.bill.generated"),
		BillBatchGenerated: factory.Counter("billing.bill.batch_generated"),
		BillFailed:         factory.Counter("billing.bill.failed"),
		BillNetPayable:     factory.Histogram("billing.bill.net_payable"),

		BatchCompleted: factory.Counter("billing.batch.completed"),
		BatchSkipped:   factory.Counter("billing.batch.skipped"),

		ReminderSent:        factory.Counter("billing.reminder.sent"),
		OverdueReminderSent: factory.Counter("billing.reminder.overdue_sent"),

		PaymentRecorded: factory.Counter("billing.payment.recorded"),
		PaymentAmount:   factory.Histogram("billing.payment.amount"),

		AdvanceApplied:     factory.Counter("billing.advance.applied"),
		AdvanceAutoApplied: factory.Counter("billing.advance.auto_applied"),
		AdvanceDeposited:   factory.Counter("billing.advance.deposited"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Bill hooks
// ──────────────────────────────────────────────────

// OnBillGenerated implements plugin.OnBillGenerated.
func (m *MetricsExtension) OnBillGenerated(_ context.Context, b *bill.Bill, _ string, batch bool) error {
	m.BillGenerated.Inc()
	if batch {
		m.BillBatchGenerated.Inc()
	}
	m.BillNetPayable.Observe(b.NetPayable.Decimal().InexactFloat64())
	return nil
}

// OnBillGenerationFailed implements plugin.OnBillGenerationFailed.
func (m *MetricsExtension) OnBillGenerationFailed(_ context.Context, _ string, _ error) error {
	m.BillFailed.Inc()
	return nil
}

// OnBatchCompleted implements plugin.OnBatchCompleted.
func (m *MetricsExtension) OnBatchCompleted(_ context.Context, s *bill.BatchSummary, _ string) error {
	m.BatchCompleted.Inc()
	m.BatchSkipped.Add(float64(s.Skipped))
	return nil
}

// OnReminderSent implements plugin.OnReminderSent.
func (m *MetricsExtension) OnReminderSent(_ context.Context, _ *bill.Bill, overdue bool) error {
	if overdue {
		m.OverdueReminderSent.Inc()
	} else {
		m.ReminderSent.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Payment and wallet hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (m *MetricsExtension) OnPaymentRecorded(_ context.Context, p *payment.Payment, _ *bill.Bill, _ string) error {
	m.PaymentRecorded.Inc()
	m.PaymentAmount.Observe(p.Amount.Decimal().InexactFloat64())
	return nil
}

// OnAdvanceApplied implements plugin.OnAdvanceApplied.
func (m *MetricsExtension) OnAdvanceApplied(_ context.Context, _ *payment.Payment, _ *bill.Bill, _ string, automatic bool) error {
	m.AdvanceApplied.Inc()
	if automatic {
		m.AdvanceAutoApplied.Inc()
	}
	return nil
}

// OnAdvanceDeposited implements plugin.OnAdvanceDeposited.
func (m *MetricsExtension) OnAdvanceDeposited(_ context.Context, _ *account.Customer, _ types.Money, _ string) error {
	m.AdvanceDeposited.Inc()
	return nil
}
