package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing"
	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/reading"
	"github.com/xraph/billing/store/memory"
	"github.com/xraph/billing/tariff"
	"github.com/xraph/billing/types"
)

// fixture is an engine over the memory store with one customer, one
// LT-I residential account and the LT-I tariff:
// slabs 1-100 @ 3.50, 101-300 @ 5.20, 301+ @ 7.00, fixed 50.00, rent 20.00.
// 250 units therefore price at 1130.00 energy and 1200.00 total.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	eng      *billing.Engine
	notifier *recordingNotifier
	customer *account.Customer
	account  *account.Account
	tariff   *tariff.Tariff

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, opts ...billing.Option) *fixture {
	t.Helper()

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memory.New(),
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
	}

	base := []billing.Option{
		billing.WithClock(f.clock),
		billing.WithNotifier(f.notifier),
	}
	f.eng = billing.New(f.store, append(base, opts...)...)

	f.customer = f.newCustomer(0)
	f.account = f.newAccount(f.customer, "A-1001", "LT-I")

	hi1, hi2 := int64(100), int64(300)
	f.tariff = &tariff.Tariff{
		Entity:         types.NewEntity(),
		ID:             id.NewTariffID(),
		Code:           "LT-I",
		Name:           "Residential LT-I",
		ConnectionType: account.Residential,
		FixedCharge:    types.INR(5000),
		MeterRent:      types.INR(2000),
		EffectiveFrom:  types.Date(2023, time.January, 1),
		Active:         true,
		Slabs: []tariff.Slab{
			{Number: 1, MinUnits: 1, MaxUnits: &hi1, RatePerUnit: decimal.RequireFromString("3.50")},
			{Number: 2, MinUnits: 101, MaxUnits: &hi2, RatePerUnit: decimal.RequireFromString("5.20")},
			{Number: 3, MinUnits: 301, RatePerUnit: decimal.RequireFromString("7.00")},
		},
	}
	f.must(f.store.CreateTariff(f.ctx, f.tariff))

	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setNow(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

func (f *fixture) must(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("setup: %v", err)
	}
}

func (f *fixture) newCustomer(advancePaise int64) *account.Customer {
	f.t.Helper()
	c := &account.Customer{
		Entity:         types.NewEntity(),
		ID:             id.NewCustomerID(),
		Name:           "Asha Verma",
		AdvanceBalance: types.INR(advancePaise),
	}
	f.must(f.store.CreateCustomer(f.ctx, c))
	return c
}

func (f *fixture) newAccount(c *account.Customer, number, category string) *account.Account {
	f.t.Helper()
	a := &account.Account{
		Entity:         types.NewEntity(),
		ID:             id.NewAccountID(),
		CustomerID:     c.ID,
		AccountNumber:  number,
		MeterNumber:    "M-" + number,
		ConnectionType: account.Residential,
		TariffCategory: category,
		Active:         true,
	}
	f.must(f.store.CreateAccount(f.ctx, a))
	return a
}

// reading records a meter reading for acct through the engine.
func (f *fixture) reading(acct *account.Account, month string, current int64) *reading.Reading {
	f.t.Helper()
	r, err := f.eng.RecordReading(f.ctx, billing.ReadingInput{
		AccountID:      acct.ID,
		BillingMonth:   month,
		CurrentReading: current,
	}, "meter-reader")
	f.must(err)
	return r
}

func (f *fixture) generate(r *reading.Reading) *bill.Bill {
	f.t.Helper()
	b, err := f.eng.GenerateBill(f.ctx, r.ID, "clerk")
	f.must(err)
	return b
}

func (f *fixture) advance(c *account.Customer) types.Money {
	f.t.Helper()
	got, err := f.eng.GetCustomer(f.ctx, c.ID)
	f.must(err)
	return got.AdvanceBalance
}

func (f *fixture) payments(b *bill.Bill) []*payment.Payment {
	f.t.Helper()
	list, err := f.eng.ListPaymentsByBill(f.ctx, b.ID)
	f.must(err)
	return list
}

func assertMoney(t *testing.T, field string, got types.Money, wantPaise int64) {
	t.Helper()
	if !got.Equal(types.INR(wantPaise)) {
		t.Errorf("%s: got %v, want %v", field, got, types.INR(wantPaise))
	}
}

// assertLedger checks balance == max(0, netPayable - amountPaid) and that
// the status follows the balance.
func assertLedger(t *testing.T, b *bill.Bill) {
	t.Helper()
	want := b.NetPayable.Subtract(b.AmountPaid).ClampZero()
	if !b.Balance.Equal(want) {
		t.Errorf("balance %v != max(0, %v - %v)", b.Balance, b.NetPayable, b.AmountPaid)
	}
	switch {
	case b.Balance.IsZero() && b.Status != bill.StatusPaid:
		t.Errorf("zero balance with status %s", b.Status)
	case b.Balance.IsPositive() && b.Status == bill.StatusPaid:
		t.Errorf("balance %v with status PAID", b.Balance)
	}
}

// ──────────────────────────────────────────────────
// Collaborator doubles
// ──────────────────────────────────────────────────

type reminderCall struct {
	billID  id.BillID
	overdue bool
}

type recordingNotifier struct {
	mu        sync.Mutex
	generated []id.BillID
	receipts  []string
	reminders []reminderCall
	fail      bool
}

func (n *recordingNotifier) NotifyBillGenerated(_ context.Context, b *bill.Bill) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.generated = append(n.generated, b.ID)
	if n.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (n *recordingNotifier) NotifyPaymentReceipt(_ context.Context, p *payment.Payment, _ *bill.Bill) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts = append(n.receipts, p.Reference)
	if n.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (n *recordingNotifier) NotifyReminder(_ context.Context, b *bill.Bill, overdue bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, reminderCall{billID: b.ID, overdue: overdue})
	if n.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (n *recordingNotifier) counts() (generated, receipts, reminders int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.generated), len(n.receipts), len(n.reminders)
}

type stubRenderer struct {
	err error
}

func (r stubRenderer) RenderBillDocument(_ context.Context, b *bill.Bill) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "bills/" + b.ID.String() + ".pdf", nil
}

func (r stubRenderer) RenderPaymentQR(_ context.Context, b *bill.Bill) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "qr/" + b.ID.String() + ".png", nil
}
