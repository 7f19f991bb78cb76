package billing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/billing"
	"github.com/xraph/billing/account"
	audithook "github.com/xraph/billing/audit_hook"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/latefee"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/tariff"
	"github.com/xraph/billing/types"
)

func TestGenerateBillPricesReading(t *testing.T) {
	f := newFixture(t)
	r := f.reading(f.account, "2024-01", 250)

	b := f.generate(r)

	assertMoney(t, "energy", b.EnergyCharge, 113000)
	assertMoney(t, "fixed", b.FixedCharge, 5000)
	assertMoney(t, "meter rent", b.MeterRent, 2000)
	assertMoney(t, "total", b.TotalAmount, 120000)
	assertMoney(t, "previous due", b.PreviousDue, 0)
	assertMoney(t, "late fee", b.LateFee, 0)
	assertMoney(t, "net payable", b.NetPayable, 120000)
	assertMoney(t, "balance", b.Balance, 120000)

	if b.UnitsConsumed != 250 {
		t.Errorf("units = %d, want 250", b.UnitsConsumed)
	}
	if b.Status != bill.StatusUnpaid {
		t.Errorf("status = %s, want UNPAID", b.Status)
	}
	if b.InvoiceNumber != "VIT/2024/02/00001" {
		t.Errorf("invoice number = %q", b.InvoiceNumber)
	}
	if want := types.Date(2024, time.February, 16); !b.DueDate.Equal(want) {
		t.Errorf("due date = %s, want %s", b.DueDate, want)
	}
	if b.CustomerID != f.customer.ID || b.ReadingID != r.ID {
		t.Error("bill does not reference its customer and reading")
	}
	assertLedger(t, b)
}

func TestGenerateBillInvoiceSequenceAdvances(t *testing.T) {
	f := newFixture(t)
	second := f.newAccount(f.customer, "A-1002", "LT-I")

	b1 := f.generate(f.reading(f.account, "2024-01", 100))
	b2 := f.generate(f.reading(second, "2024-01", 100))

	if b1.InvoiceNumber != "VIT/2024/02/00001" || b2.InvoiceNumber != "VIT/2024/02/00002" {
		t.Errorf("invoice numbers = %q, %q", b1.InvoiceNumber, b2.InvoiceNumber)
	}
}

func TestGenerateBillFailures(t *testing.T) {
	f := newFixture(t)
	billed := f.reading(f.account, "2024-01", 250)
	f.generate(billed)

	orphan := f.newAccount(f.customer, "A-9999", "LT-X")
	unpriced := f.reading(orphan, "2024-01", 80)

	tests := []struct {
		name      string
		readingID id.ReadingID
		check     func(error) bool
	}{
		{"unknown reading", id.NewReadingID(), billing.IsNotFound},
		{"already billed", billed.ID, billing.IsConflict},
		{"no active tariff", unpriced.ID, func(err error) bool {
			return billing.IsNotFound(err) && billing.IsUnresolvable(err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.GenerateBill(f.ctx, tt.readingID, "clerk")
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error kind: %v", err)
			}
		})
	}

	bills, _ := f.eng.ListBillsByAccount(f.ctx, orphan.ID)
	if len(bills) != 0 {
		t.Errorf("failed generation left %d bills", len(bills))
	}
}

func TestGenerateBillTariffWithoutSlabs(t *testing.T) {
	f := newFixture(t)
	f.must(f.store.CreateTariff(f.ctx, &tariff.Tariff{
		Entity:         types.NewEntity(),
		ID:             id.NewTariffID(),
		Code:           "LT-EMPTY",
		ConnectionType: account.Residential,
		FixedCharge:    types.INR(0),
		MeterRent:      types.INR(0),
		EffectiveFrom:  types.Date(2023, time.January, 1),
		Active:         true,
	}))

	empty := f.newAccount(f.customer, "A-0000", "LT-EMPTY")
	_, err := f.eng.GenerateBill(f.ctx, f.reading(empty, "2024-01", 10).ID, "clerk")
	if !errors.Is(err, billing.ErrNoSlabs) || !billing.IsUnresolvable(err) {
		t.Fatalf("expected ErrNoSlabs, got %v", err)
	}

	b := f.generate(f.reading(f.account, "2024-01", 10))
	if b.InvoiceNumber != "VIT/2024/02/00001" {
		t.Errorf("invoice number = %q, failed generation consumed a sequence value", b.InvoiceNumber)
	}
}

func TestGenerateBillAppliesAdvance(t *testing.T) {
	f := newFixture(t)
	rich := f.newCustomer(150000)
	acct := f.newAccount(rich, "A-2001", "LT-I")

	b := f.generate(f.reading(acct, "2024-01", 250))

	assertMoney(t, "net payable", b.NetPayable, 120000)
	assertMoney(t, "amount paid", b.AmountPaid, 120000)
	assertMoney(t, "balance", b.Balance, 0)
	if b.Status != bill.StatusPaid {
		t.Errorf("status = %s, want PAID", b.Status)
	}
	assertMoney(t, "advance", f.advance(rich), 30000)
	assertLedger(t, b)

	pays := f.payments(b)
	if len(pays) != 1 {
		t.Fatalf("expected 1 adjustment payment, got %d", len(pays))
	}
	adj := pays[0]
	if !adj.IsAdvanceAdjustment() || adj.Mode != payment.ModeCash || adj.Status != payment.StatusSuccess {
		t.Errorf("unexpected adjustment %+v", adj)
	}
	assertMoney(t, "adjustment amount", adj.Amount, 120000)
}

func TestGenerateBillPartialAdvance(t *testing.T) {
	f := newFixture(t)
	c := f.newCustomer(70000)
	acct := f.newAccount(c, "A-2002", "LT-I")

	b := f.generate(f.reading(acct, "2024-01", 250))

	assertMoney(t, "balance", b.Balance, 50000)
	if b.Status != bill.StatusPartiallyPaid {
		t.Errorf("status = %s, want PARTIALLY_PAID", b.Status)
	}
	assertMoney(t, "advance", f.advance(c), 0)
}

func TestGenerateBillLateFeeAcrossBills(t *testing.T) {
	f := newFixture(t)
	f.must(f.store.CreateLateFeePolicy(f.ctx, &latefee.Policy{
		Entity:           types.NewEntity(),
		ID:               id.NewLateFeePolicyID(),
		ConnectionType:   f.account.ConnectionType,
		StandardDueDays:  15,
		GracePeriodDays:  3,
		DailyRatePercent: decimal.NewFromInt(1),
		EffectiveFrom:    types.Date(2023, time.January, 1),
		Active:           true,
	}))

	f.setNow(time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC))
	jan := f.generate(f.reading(f.account, "2024-01", 250))
	if want := types.Date(2024, time.January, 15); !jan.DueDate.Equal(want) {
		t.Fatalf("due date = %s, want %s", jan.DueDate, want)
	}
	if _, err := f.eng.RecordPayment(f.ctx, payment.Request{BillID: jan.ID, Amount: types.INR(20000), Mode: "CASH"}, "cashier"); err != nil {
		t.Fatalf("partial payment: %v", err)
	}

	f.setNow(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	feb := f.generate(f.reading(f.account, "2024-02", 500))

	// late start 2024-01-18, 14 days at 1% of 1000.00
	assertMoney(t, "previous due", feb.PreviousDue, 100000)
	assertMoney(t, "late fee", feb.LateFee, 14000)
	assertMoney(t, "net payable", feb.NetPayable, 120000+100000+14000)
	if feb.InvoiceNumber != "VIT/2024/02/00001" {
		t.Errorf("invoice number = %q", feb.InvoiceNumber)
	}
	if jan.InvoiceNumber != "VIT/2023/12/00001" {
		t.Errorf("invoice number = %q", jan.InvoiceNumber)
	}
}

func TestGenerateBillFallbackLateFee(t *testing.T) {
	f := newFixture(t)

	f.setNow(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))
	f.generate(f.reading(f.account, "2024-01", 250))

	f.setNow(time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC))
	feb := f.generate(f.reading(f.account, "2024-02", 500))

	assertMoney(t, "previous due", feb.PreviousDue, 120000)
	assertMoney(t, "late fee", feb.LateFee, 5000)
	assertMoney(t, "net payable", feb.NetPayable, 245000)
}

func TestGenerateBillCurrency(t *testing.T) {
	f := newFixture(t, billing.WithConfig(billing.Config{Currency: "USD"}))

	usd := &tariff.Tariff{
		Entity:         types.NewEntity(),
		ID:             id.NewTariffID(),
		Code:           "LT-U",
		Name:           "Residential USD",
		ConnectionType: account.Residential,
		FixedCharge:    types.USD(1000),
		MeterRent:      types.USD(0),
		EffectiveFrom:  types.Date(2023, time.January, 1),
		Active:         true,
		Slabs:          []tariff.Slab{{Number: 1, MinUnits: 1, RatePerUnit: decimal.RequireFromString("1.00")}},
	}
	f.must(f.store.CreateTariff(f.ctx, usd))
	acct := f.newAccount(f.customer, "U-1001", "LT-U")

	t.Run("tariff in another currency", func(t *testing.T) {
		_, err := f.eng.GenerateBill(f.ctx, f.reading(f.account, "2024-01", 250).ID, "clerk")
		if !errors.Is(err, billing.ErrCurrencyMismatch) || !billing.IsUnresolvable(err) {
			t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
		}
	})

	t.Run("fallback late fee in bill currency", func(t *testing.T) {
		f.setNow(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))
		jan := f.generate(f.reading(acct, "2024-01", 100))
		if !jan.TotalAmount.Equal(types.USD(11000)) {
			t.Fatalf("january total = %v", jan.TotalAmount)
		}

		f.setNow(time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC))
		feb := f.generate(f.reading(acct, "2024-02", 150))
		if !feb.LateFee.Equal(types.USD(5000)) {
			t.Errorf("late fee = %v, want 50.00 usd", feb.LateFee)
		}
		if !feb.NetPayable.Equal(types.USD(6000 + 11000 + 5000)) {
			t.Errorf("net payable = %v", feb.NetPayable)
		}
	})
}

func TestConcurrentGenerationCreatesOneBill(t *testing.T) {
	f := newFixture(t)
	r := f.reading(f.account, "2024-01", 250)

	const attempts = 8
	var created, conflicts atomic.Int32
	var g errgroup.Group
	for range attempts {
		g.Go(func() error {
			_, err := f.eng.GenerateBill(context.Background(), r.ID, "clerk")
			switch {
			case err == nil:
				created.Add(1)
			case billing.IsConflict(err):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Load() != 1 || conflicts.Load() != attempts-1 {
		t.Errorf("created %d, conflicts %d", created.Load(), conflicts.Load())
	}
	bills, _ := f.eng.ListBillsByAccount(f.ctx, f.account.ID)
	if len(bills) != 1 {
		t.Errorf("expected 1 bill, got %d", len(bills))
	}
}

func TestSideEffectFailuresDoNotFailGeneration(t *testing.T) {
	f := newFixture(t, billing.WithRenderer(stubRenderer{err: errors.New("renderer offline")}))
	f.notifier.fail = true

	b, err := f.eng.GenerateBill(f.ctx, f.reading(f.account, "2024-01", 250).ID, "clerk")
	if err != nil {
		t.Fatalf("generation failed because of a side effect: %v", err)
	}

	stored, _ := f.eng.GetBill(f.ctx, b.ID)
	if stored.DocumentPath != "" {
		t.Errorf("document path = %q, want empty", stored.DocumentPath)
	}
	if generated, _, _ := f.notifier.counts(); generated != 1 {
		t.Errorf("notifier called %d times, want 1", generated)
	}
}

func TestGeneratedBillDocumentsArePersisted(t *testing.T) {
	f := newFixture(t, billing.WithRenderer(stubRenderer{}))

	b := f.generate(f.reading(f.account, "2024-01", 250))

	stored, err := f.eng.GetBill(f.ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.DocumentPath != "bills/"+b.ID.String()+".pdf" || stored.QRCodePath != "qr/"+b.ID.String()+".png" {
		t.Errorf("paths = %q, %q", stored.DocumentPath, stored.QRCodePath)
	}
}

func TestEngineRunsEffectsOnWorker(t *testing.T) {
	f := newFixture(t)
	if err := f.eng.Start(f.ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.generate(f.reading(f.account, "2024-01", 250))

	ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
	defer cancel()
	if err := f.eng.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if generated, _, _ := f.notifier.counts(); generated != 1 {
		t.Errorf("notifier called %d times, want 1", generated)
	}

	if err := f.eng.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestPluginHooksSurviveFullEffectQueue(t *testing.T) {
	rec := &auditLog{}
	f := newFixture(t,
		billing.WithPlugin(audithook.New(rec)),
		billing.WithRenderer(slowRenderer{delay: 20 * time.Millisecond}),
		billing.WithConfig(billing.Config{EffectQueueSize: 4}),
	)
	if err := f.eng.Start(f.ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	const accounts = 20
	for i := range accounts {
		f.reading(f.newAccount(f.customer, fmt.Sprintf("Q-%04d", i), "LT-I"), "2024-01", 120)
	}

	summary, err := f.eng.GenerateBillsForMonth(f.ctx, "2024-01", "scheduler")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if summary.Created != accounts {
		t.Fatalf("created %d bills, want %d", summary.Created, accounts)
	}

	ctx, cancel := context.WithTimeout(f.ctx, 10*time.Second)
	defer cancel()
	if err := f.eng.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := f.eng.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	counts := map[string]int{}
	for _, action := range rec.actions() {
		counts[action]++
	}
	if counts[audithook.ActionGenerateBillBatchEntry] != accounts {
		t.Errorf("batch entry records = %d, want %d", counts[audithook.ActionGenerateBillBatchEntry], accounts)
	}
	if counts[audithook.ActionGenerateBillBatch] != 1 {
		t.Errorf("batch records = %d, want 1", counts[audithook.ActionGenerateBillBatch])
	}
}

func TestFlush(t *testing.T) {
	t.Run("idle engine", func(t *testing.T) {
		f := newFixture(t)
		if err := f.eng.Flush(f.ctx); err != nil {
			t.Fatalf("flush before start: %v", err)
		}
		if err := f.eng.Start(f.ctx); err != nil {
			t.Fatalf("start: %v", err)
		}
		defer f.eng.Stop() //nolint:errcheck // test cleanup
		if err := f.eng.Flush(f.ctx); err != nil {
			t.Fatalf("flush with nothing queued: %v", err)
		}
	})

	t.Run("concurrent with queued effects", func(t *testing.T) {
		f := newFixture(t)
		if err := f.eng.Start(f.ctx); err != nil {
			t.Fatalf("start: %v", err)
		}

		const bills = 16
		readings := make([]id.ReadingID, bills)
		for i := range bills {
			readings[i] = f.reading(f.newAccount(f.customer, fmt.Sprintf("F-%04d", i), "LT-I"), "2024-01", 90).ID
		}

		var g errgroup.Group
		for _, rid := range readings {
			g.Go(func() error {
				_, err := f.eng.GenerateBill(context.Background(), rid, "clerk")
				return err
			})
			g.Go(func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return f.eng.Flush(ctx)
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
		defer cancel()
		if err := f.eng.Flush(ctx); err != nil {
			t.Fatalf("final flush: %v", err)
		}
		if generated, _, _ := f.notifier.counts(); generated != bills {
			t.Errorf("notifier called %d times, want %d", generated, bills)
		}
		if err := f.eng.Stop(); err != nil {
			t.Fatalf("stop: %v", err)
		}
	})
}

// slowRenderer renders like stubRenderer after a fixed delay.
type slowRenderer struct {
	delay time.Duration
}

func (r slowRenderer) RenderBillDocument(ctx context.Context, b *bill.Bill) (string, error) {
	time.Sleep(r.delay)
	return stubRenderer{}.RenderBillDocument(ctx, b)
}

func (r slowRenderer) RenderPaymentQR(ctx context.Context, b *bill.Bill) (string, error) {
	return stubRenderer{}.RenderPaymentQR(ctx, b)
}

func TestAuditTrail(t *testing.T) {
	rec := &auditLog{}
	f := newFixture(t, billing.WithPlugin(audithook.New(rec)))
	c := f.newCustomer(150000)
	acct := f.newAccount(c, "A-3001", "LT-I")

	ctx := audithook.WithIPAddress(f.ctx, "192.0.2.10")
	if _, err := f.eng.GenerateBill(ctx, f.reading(acct, "2024-01", 250).ID, "clerk"); err != nil {
		t.Fatal(err)
	}

	actions := rec.actions()
	want := []string{audithook.ActionGenerateBill, audithook.ActionAutoApplyAdvance}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("action %d = %s, want %s", i, actions[i], want[i])
		}
	}
	for _, evt := range rec.all() {
		if evt.IPAddress != "192.0.2.10" || evt.Actor != "clerk" {
			t.Errorf("event %s by %s from %q", evt.Action, evt.Actor, evt.IPAddress)
		}
	}
}

type auditLog struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (l *auditLog) Record(_ context.Context, e *audithook.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *auditLog) all() []*audithook.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*audithook.AuditEvent(nil), l.events...)
}

func (l *auditLog) actions() []string {
	var out []string
	for _, e := range l.all() {
		out = append(out, e.Action)
	}
	return out
}
