package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/observability"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

func newExtension(t *testing.T) (*observability.MetricsExtension, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return observability.NewMetricsExtension(observability.NewPrometheusFactory(reg)), reg
}

func counterValue(t *testing.T, c observability.Counter) float64 {
	t.Helper()
	pc, ok := c.(prometheus.Counter)
	if !ok {
		t.Fatalf("expected prometheus counter, got %T", c)
	}
	return testutil.ToFloat64(pc)
}

func TestBillHooks(t *testing.T) {
	m, _ := newExtension(t)
	ctx := context.Background()
	b := &bill.Bill{ID: id.NewBillID(), NetPayable: types.INR(136250)}

	_ = m.OnBillGenerated(ctx, b, "clerk", false)
	_ = m.OnBillGenerated(ctx, b, "clerk", true)
	_ = m.OnBillGenerationFailed(ctx, id.NewReadingID().String(), errors.New("no tariff"))

	if got := counterValue(t, m.BillGenerated); got != 2 {
		t.Errorf("bill generated = %v, want 2", got)
	}
	if got := counterValue(t, m.BillBatchGenerated); got != 1 {
		t.Errorf("batch generated = %v, want 1", got)
	}
	if got := counterValue(t, m.BillFailed); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestBatchAndReminderHooks(t *testing.T) {
	m, _ := newExtension(t)
	ctx := context.Background()

	_ = m.OnBatchCompleted(ctx, &bill.BatchSummary{Month: "2024-01", Created: 3, Skipped: 2}, "clerk")
	_ = m.OnReminderSent(ctx, &bill.Bill{}, false)
	_ = m.OnReminderSent(ctx, &bill.Bill{}, true)
	_ = m.OnReminderSent(ctx, &bill.Bill{}, true)

	if got := counterValue(t, m.BatchSkipped); got != 2 {
		t.Errorf("skipped = %v, want 2", got)
	}
	if got := counterValue(t, m.ReminderSent); got != 1 {
		t.Errorf("reminders = %v, want 1", got)
	}
	if got := counterValue(t, m.OverdueReminderSent); got != 2 {
		t.Errorf("overdue reminders = %v, want 2", got)
	}
}

func TestPaymentAndWalletHooks(t *testing.T) {
	m, reg := newExtension(t)
	ctx := context.Background()
	p := &payment.Payment{ID: id.NewPaymentID(), Amount: types.INR(50000)}

	_ = m.OnPaymentRecorded(ctx, p, &bill.Bill{}, "clerk")
	_ = m.OnAdvanceApplied(ctx, p, &bill.Bill{}, "clerk", true)
	_ = m.OnAdvanceApplied(ctx, p, &bill.Bill{}, "clerk", false)

	if got := counterValue(t, m.PaymentRecorded); got != 1 {
		t.Errorf("payments = %v, want 1", got)
	}
	if got := counterValue(t, m.AdvanceApplied); got != 2 {
		t.Errorf("advance applied = %v, want 2", got)
	}
	if got := counterValue(t, m.AdvanceAutoApplied); got != 1 {
		t.Errorf("advance auto applied = %v, want 1", got)
	}

	n, err := testutil.GatherAndCount(reg, "billing_payment_amount")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 payment amount series, got %d", n)
	}
}

func TestFactoryReusesMetrics(t *testing.T) {
	f := observability.NewPrometheusFactory(prometheus.NewRegistry())
	a := f.Counter("billing.bill.generated")
	b := f.Counter("billing.bill.generated")
	if a != b {
		t.Error("expected the same counter for repeated names")
	}
}
