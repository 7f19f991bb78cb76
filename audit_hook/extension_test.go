package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xraph/billing/account"
	audithook "github.com/xraph/billing/audit_hook"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

type memoryRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (r *memoryRecorder) Record(_ context.Context, e *audithook.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memoryRecorder) last(t *testing.T) *audithook.AuditEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		t.Fatal("no audit events recorded")
	}
	return r.events[len(r.events)-1]
}

func TestBillGeneratedActions(t *testing.T) {
	tests := []struct {
		name   string
		batch  bool
		action string
	}{
		{"single", false, audithook.ActionGenerateBill},
		{"batch entry", true, audithook.ActionGenerateBillBatchEntry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memoryRecorder{}
			ext := audithook.New(rec)
			b := &bill.Bill{ID: id.NewBillID(), InvoiceNumber: "INV/2024/01/00001", NetPayable: types.INR(136250)}

			ctx := audithook.WithIPAddress(context.Background(), "10.0.0.7")
			if err := ext.OnBillGenerated(ctx, b, "clerk-1", tt.batch); err != nil {
				t.Fatalf("OnBillGenerated: %v", err)
			}

			evt := rec.last(t)
			if evt.Action != tt.action {
				t.Errorf("action = %q, want %q", evt.Action, tt.action)
			}
			if evt.EntityType != audithook.EntityBill || evt.EntityID != b.ID.String() {
				t.Errorf("entity = %s/%s", evt.EntityType, evt.EntityID)
			}
			if evt.Actor != "clerk-1" {
				t.Errorf("actor = %q", evt.Actor)
			}
			if evt.IPAddress != "10.0.0.7" {
				t.Errorf("ip = %q", evt.IPAddress)
			}
			if evt.Details["net_payable"] != "1362.50" {
				t.Errorf("net_payable detail = %v", evt.Details["net_payable"])
			}
		})
	}
}

func TestAdvanceActions(t *testing.T) {
	rec := &memoryRecorder{}
	ext := audithook.New(rec)
	ctx := context.Background()
	p := &payment.Payment{ID: id.NewPaymentID(), Amount: types.INR(120000)}
	b := &bill.Bill{ID: id.NewBillID()}

	_ = ext.OnAdvanceApplied(ctx, p, b, "", true)
	if got := rec.last(t); got.Action != audithook.ActionAutoApplyAdvance || got.Actor != audithook.SystemActor {
		t.Errorf("got %s by %s", got.Action, got.Actor)
	}

	_ = ext.OnAdvanceApplied(ctx, p, b, "clerk-1", false)
	if got := rec.last(t); got.Action != audithook.ActionApplyAdvance {
		t.Errorf("got %s", got.Action)
	}

	c := &account.Customer{ID: id.NewCustomerID(), AdvanceBalance: types.INR(150000)}
	_ = ext.OnAdvanceDeposited(ctx, c, types.INR(150000), "clerk-1")
	got := rec.last(t)
	if got.Action != audithook.ActionAddAdvancePayment || got.EntityType != audithook.EntityCustomer {
		t.Errorf("got %s on %s", got.Action, got.EntityType)
	}
}

func TestFailureCarriesReason(t *testing.T) {
	rec := &memoryRecorder{}
	ext := audithook.New(rec)

	_ = ext.OnBillGenerationFailed(context.Background(), "rdg_x", errors.New("no active tariff"))

	evt := rec.last(t)
	if evt.Outcome != audithook.OutcomeFailure {
		t.Errorf("outcome = %q", evt.Outcome)
	}
	if evt.Reason != "no active tariff" {
		t.Errorf("reason = %q", evt.Reason)
	}
}

func TestBatchPartialOutcome(t *testing.T) {
	rec := &memoryRecorder{}
	ext := audithook.New(rec)

	_ = ext.OnBatchCompleted(context.Background(), &bill.BatchSummary{
		Month: "2024-01", Created: 1, Skipped: 1, Errors: []string{"Account A-1: no active tariff"},
	}, "clerk-1")

	if got := rec.last(t).Outcome; got != audithook.OutcomePartial {
		t.Errorf("outcome = %q, want partial", got)
	}
}

func TestDisabledActions(t *testing.T) {
	rec := &memoryRecorder{}
	ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionBillReminder))

	_ = ext.OnReminderSent(context.Background(), &bill.Bill{ID: id.NewBillID()}, false)
	_ = ext.OnReminderSent(context.Background(), &bill.Bill{ID: id.NewBillID()}, true)

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	if rec.events[0].Action != audithook.ActionBillOverdueReminder {
		t.Errorf("action = %q", rec.events[0].Action)
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("sink down")
	}))

	if err := ext.OnPaymentRecorded(context.Background(), &payment.Payment{ID: id.NewPaymentID()}, &bill.Bill{}, "clerk"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
