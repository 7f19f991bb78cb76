package billing_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/billing"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

func TestRecordPaymentSettlesBill(t *testing.T) {
	f := newFixture(t)
	f.must(f.store.CreateCharge(f.ctx, &charge.Rule{
		Entity:       types.NewEntity(),
		ID:           id.NewChargeID(),
		Name:         "Convenience Fee ONLINE",
		Category:     charge.ConvenienceFee,
		Mode:         payment.ModeOnline,
		Type:         charge.TypeFixed,
		Value:        decimal.NewFromInt(10),
		ApplicableTo: []string{charge.ApplicableToAll},
		Active:       true,
	}))
	c := f.newCustomer(70000)
	acct := f.newAccount(c, "A-4001", "LT-I")
	b := f.generate(f.reading(acct, "2024-01", 250))
	assertMoney(t, "balance after advance", b.Balance, 50000)

	p, err := f.eng.RecordPayment(f.ctx, payment.Request{
		BillID: b.ID,
		Amount: types.INR(50000),
		Mode:   "online",
	}, "cashier")
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}

	assertMoney(t, "fee", p.ConvenienceFee, 1000)
	assertMoney(t, "net amount", p.NetAmount, 51000)
	if p.Mode != payment.ModeOnline || p.Status != payment.StatusSuccess {
		t.Errorf("unexpected payment %+v", p)
	}
	if !strings.HasPrefix(p.Reference, "PAY-") || !strings.HasPrefix(p.TransactionID, "TXN-") {
		t.Errorf("reference %q, transaction %q", p.Reference, p.TransactionID)
	}

	settled, err := f.eng.GetBill(f.ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if settled.Status != bill.StatusPaid {
		t.Errorf("status = %s, want PAID", settled.Status)
	}
	assertMoney(t, "amount paid", settled.AmountPaid, 120000)
	assertLedger(t, settled)

	if _, receipts, _ := f.notifier.counts(); receipts != 1 {
		t.Errorf("receipts = %d, want 1", receipts)
	}
}

func TestRecordPaymentPartialUPI(t *testing.T) {
	f := newFixture(t)
	b := f.generate(f.reading(f.account, "2024-01", 250))

	p, err := f.eng.RecordPayment(f.ctx, payment.Request{BillID: b.ID, Amount: types.INR(20000), Mode: "UPI"}, "cashier")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(p.UPIReference, "UPI-") {
		t.Errorf("upi reference = %q", p.UPIReference)
	}
	if p.Channel != "UPI" {
		t.Errorf("channel = %q", p.Channel)
	}

	got, _ := f.eng.GetBill(f.ctx, b.ID)
	if got.Status != bill.StatusPartiallyPaid {
		t.Errorf("status = %s, want PARTIALLY_PAID", got.Status)
	}
	assertMoney(t, "balance", got.Balance, 100000)
	assertLedger(t, got)
}

func TestRecordPaymentRejections(t *testing.T) {
	f := newFixture(t)
	c := f.newCustomer(70000)
	acct := f.newAccount(c, "A-4002", "LT-I")
	b := f.generate(f.reading(acct, "2024-01", 250))

	tests := []struct {
		name    string
		req     payment.Request
		message string
	}{
		{"exceeds outstanding", payment.Request{BillID: b.ID, Amount: types.INR(60000), Mode: "CASH"}, "500.00"},
		{"zero amount", payment.Request{BillID: b.ID, Amount: types.INR(0), Mode: "CASH"}, "greater than zero"},
		{"negative amount", payment.Request{BillID: b.ID, Amount: types.INR(-100), Mode: "CASH"}, "greater than zero"},
		{"unknown mode", payment.Request{BillID: b.ID, Amount: types.INR(100), Mode: "BARTER"}, "BARTER"},
		{"currency mismatch", payment.Request{BillID: b.ID, Amount: types.MustParse("10", "usd"), Mode: "CASH"}, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.RecordPayment(f.ctx, tt.req, "cashier")
			if !billing.IsInvalidArgument(err) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
		})
	}

	// only the advance adjustment made at generation
	if pays := f.payments(b); len(pays) != 1 {
		t.Errorf("rejected payments left %d rows", len(pays))
	}
	got, _ := f.eng.GetBill(f.ctx, b.ID)
	assertMoney(t, "balance", got.Balance, 50000)
}

func TestConcurrentPaymentsCannotOverdraw(t *testing.T) {
	f := newFixture(t)
	b := f.generate(f.reading(f.account, "2024-01", 250))

	const attempts = 8
	var paid, rejected atomic.Int32
	var g errgroup.Group
	for range attempts {
		g.Go(func() error {
			_, err := f.eng.RecordPayment(context.Background(), payment.Request{BillID: b.ID, Amount: types.INR(120000), Mode: "CASH"}, "cashier")
			switch {
			case err == nil:
				paid.Add(1)
			case billing.IsInvalidArgument(err):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if paid.Load() != 1 || rejected.Load() != attempts-1 {
		t.Errorf("paid %d, rejected %d", paid.Load(), rejected.Load())
	}
	if pays := f.payments(b); len(pays) != 1 {
		t.Errorf("expected 1 payment row, got %d", len(pays))
	}
	got, _ := f.eng.GetBill(f.ctx, b.ID)
	assertMoney(t, "amount paid", got.AmountPaid, 120000)
	assertLedger(t, got)
}

func TestRecordPaymentUnknownBill(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.RecordPayment(f.ctx, payment.Request{BillID: id.NewBillID(), Amount: types.INR(100), Mode: "CASH"}, "cashier")
	if !billing.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordPaymentSettledByAdvance(t *testing.T) {
	f := newFixture(t)
	b := f.generate(f.reading(f.account, "2024-01", 250))

	if _, err := f.eng.AddAdvance(f.ctx, f.customer.ID, types.INR(150000), "cashier"); err != nil {
		t.Fatal(err)
	}

	p, err := f.eng.RecordPayment(f.ctx, payment.Request{BillID: b.ID, Amount: types.INR(0), Mode: "CASH"}, "cashier")
	if err != nil {
		t.Fatalf("zero payment after advance: %v", err)
	}
	if !p.IsAdvanceAdjustment() {
		t.Errorf("expected the advance adjustment, got channel %q", p.Channel)
	}
	assertMoney(t, "applied", p.Amount, 120000)
	assertMoney(t, "advance", f.advance(f.customer), 30000)

	got, _ := f.eng.GetBill(f.ctx, b.ID)
	if got.Status != bill.StatusPaid {
		t.Errorf("status = %s, want PAID", got.Status)
	}

	// a settled bill does not draw on the wallet again
	if _, err := f.eng.RecordPayment(f.ctx, payment.Request{BillID: b.ID, Amount: types.INR(0), Mode: "CASH"}, "cashier"); !billing.IsInvalidArgument(err) {
		t.Errorf("expected invalid argument, got %v", err)
	}
	assertMoney(t, "advance", f.advance(f.customer), 30000)
	if pays := f.payments(b); len(pays) != 1 {
		t.Errorf("payments = %d, want 1", len(pays))
	}
}

func TestAddAdvance(t *testing.T) {
	f := newFixture(t)

	c, err := f.eng.AddAdvance(f.ctx, f.customer.ID, types.INR(25000), "cashier")
	if err != nil {
		t.Fatal(err)
	}
	assertMoney(t, "returned balance", c.AdvanceBalance, 25000)
	assertMoney(t, "stored balance", f.advance(f.customer), 25000)

	tests := []struct {
		name       string
		customerID id.CustomerID
		amount     types.Money
		check      func(error) bool
	}{
		{"zero amount", f.customer.ID, types.INR(0), billing.IsInvalidArgument},
		{"negative amount", f.customer.ID, types.INR(-500), billing.IsInvalidArgument},
		{"unknown customer", id.NewCustomerID(), types.INR(500), billing.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.eng.AddAdvance(f.ctx, tt.customerID, tt.amount, "cashier"); !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
	assertMoney(t, "balance after rejections", f.advance(f.customer), 25000)
}

func TestPreviewCharges(t *testing.T) {
	f := newFixture(t)

	got, err := f.eng.PreviewCharges(f.ctx, f.tariff.ID, 250)
	if err != nil {
		t.Fatal(err)
	}
	assertMoney(t, "energy", got.Energy, 113000)
	assertMoney(t, "total", got.Total, 120000)
	if len(got.Slabs) != 2 {
		t.Errorf("slabs used = %d, want 2", len(got.Slabs))
	}

	zero, err := f.eng.PreviewCharges(f.ctx, f.tariff.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	assertMoney(t, "zero units total", zero.Total, 7000)

	if _, err := f.eng.PreviewCharges(f.ctx, f.tariff.ID, -1); !billing.IsInvalidArgument(err) {
		t.Errorf("negative units: %v", err)
	}
	if _, err := f.eng.PreviewCharges(f.ctx, id.NewTariffID(), 10); !billing.IsNotFound(err) {
		t.Errorf("unknown tariff: %v", err)
	}

	bills, _ := f.eng.ListBillsByAccount(f.ctx, f.account.ID)
	if len(bills) != 0 {
		t.Error("preview persisted a bill")
	}
}
