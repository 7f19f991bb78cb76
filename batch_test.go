package billing_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xraph/billing"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/reading"
	"github.com/xraph/billing/store/memory"
)

func TestGenerateBillsForMonth(t *testing.T) {
	f := newFixture(t)

	good := f.newAccount(f.customer, "A-5001", "LT-I")
	orphan := f.newAccount(f.customer, "B-5002", "LT-X")
	billed := f.newAccount(f.customer, "A-5003", "LT-I")

	f.reading(good, "2024-01", 120)
	f.reading(orphan, "2024-01", 80)
	f.generate(f.reading(billed, "2024-01", 90))

	summary, err := f.eng.GenerateBillsForMonth(f.ctx, "2024-01", "scheduler")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	if summary.Month != "2024-01" || summary.Evaluated != 3 || summary.Created != 1 || summary.Skipped != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if len(summary.Errors) != 1 || !strings.HasPrefix(summary.Errors[0], "Account B-5002:") {
		t.Fatalf("errors = %q", summary.Errors)
	}
	if !strings.Contains(summary.Errors[0], "no active tariff") {
		t.Errorf("error %q does not name the cause", summary.Errors[0])
	}

	bills, _ := f.eng.ListBillsByAccount(f.ctx, good.ID)
	if len(bills) != 1 {
		t.Fatalf("good account has %d bills", len(bills))
	}
	assertMoney(t, "good account total", bills[0].TotalAmount, 35000+10400+7000)

	again, err := f.eng.GenerateBillsForMonth(f.ctx, "2024-01", "scheduler")
	if err != nil {
		t.Fatal(err)
	}
	if again.Created != 0 || again.Skipped != 3 || len(again.Errors) != 1 {
		t.Errorf("rerun summary %+v", again)
	}
}

func TestGenerateBillsForMonthEmpty(t *testing.T) {
	f := newFixture(t)

	summary, err := f.eng.GenerateBillsForMonth(f.ctx, "2030-06", "scheduler")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Evaluated != 0 || summary.Errors == nil {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestGenerateBillsForMonthInvalidMonth(t *testing.T) {
	f := newFixture(t)

	for _, month := range []string{"", "2024-13", "01-2024", "2024/01"} {
		if _, err := f.eng.GenerateBillsForMonth(f.ctx, month, "scheduler"); !billing.IsInvalidArgument(err) {
			t.Errorf("month %q: expected invalid argument, got %v", month, err)
		}
	}
}

var errListing = errors.New("replica unavailable")

// unlistableStore fails every month listing.
type unlistableStore struct {
	*memory.Store
}

func (unlistableStore) ListReadingsByMonth(context.Context, string) ([]*reading.Reading, error) {
	return nil, errListing
}

func TestGenerateBillsForMonthListingFailure(t *testing.T) {
	eng := billing.New(unlistableStore{memory.New()})

	summary, err := eng.GenerateBillsForMonth(context.Background(), "2024-01", "scheduler")
	if !errors.Is(err, errListing) {
		t.Fatalf("expected listing error, got %v", err)
	}
	if summary != nil {
		t.Errorf("summary = %+v, want nil", summary)
	}
	if !strings.Contains(err.Error(), "2024-01") {
		t.Errorf("error %q does not name the month", err)
	}
}

func TestReminders(t *testing.T) {
	f := newFixture(t)
	open := f.generate(f.reading(f.account, "2024-01", 250))

	paidAcct := f.newAccount(f.customer, "A-6002", "LT-I")
	paid := f.generate(f.reading(paidAcct, "2024-01", 50))
	if _, err := f.eng.RecordPayment(f.ctx, payment.Request{BillID: paid.ID, Amount: paid.Balance, Mode: "CASH"}, "cashier"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		now     time.Time
		due     int
		overdue int
	}{
		{"well before due date", time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC), 0, 0},
		{"inside reminder window", time.Date(2024, 2, 14, 8, 0, 0, 0, time.UTC), 1, 0},
		{"on due date", time.Date(2024, 2, 16, 8, 0, 0, 0, time.UTC), 1, 0},
		{"day after due date", time.Date(2024, 2, 17, 8, 0, 0, 0, time.UTC), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.setNow(tt.now)

			due, err := f.eng.SendDueReminders(f.ctx)
			if err != nil {
				t.Fatal(err)
			}
			overdue, err := f.eng.SendOverdueReminders(f.ctx)
			if err != nil {
				t.Fatal(err)
			}
			if due != tt.due || overdue != tt.overdue {
				t.Errorf("due %d overdue %d, want %d and %d", due, overdue, tt.due, tt.overdue)
			}
		})
	}

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	for _, call := range f.notifier.reminders {
		if call.billID != open.ID {
			t.Errorf("reminder sent for %s", call.billID)
		}
	}
	if n := len(f.notifier.reminders); n != 3 {
		t.Errorf("reminders = %d, want 3", n)
	}
}

func TestRecordReading(t *testing.T) {
	f := newFixture(t)

	jan := f.reading(f.account, "2024-01", 250)
	if jan.PreviousReading != 0 || jan.Units() != 250 {
		t.Errorf("first reading previous %d units %d", jan.PreviousReading, jan.Units())
	}

	feb := f.reading(f.account, "2024-02", 420)
	if feb.PreviousReading != 250 || feb.Units() != 170 {
		t.Errorf("second reading previous %d units %d", feb.PreviousReading, feb.Units())
	}

	_, err := f.eng.RecordReading(f.ctx, billing.ReadingInput{
		AccountID:      f.account.ID,
		BillingMonth:   "2024-02",
		CurrentReading: 500,
	}, "meter-reader")
	if !billing.IsConflict(err) || !strings.Contains(err.Error(), "2024-02") {
		t.Errorf("duplicate reading: %v", err)
	}

	override := int64(42)
	mar, err := f.eng.RecordReading(f.ctx, billing.ReadingInput{
		AccountID:      f.account.ID,
		BillingMonth:   "2024-03",
		CurrentReading: 400,
		UnitsConsumed:  &override,
		Type:           "estimated",
	}, "meter-reader")
	if err != nil {
		t.Fatal(err)
	}
	if mar.Units() != 42 {
		t.Errorf("override units = %d", mar.Units())
	}
}

func TestRecordReadingOutOfOrder(t *testing.T) {
	f := newFixture(t)

	f.reading(f.account, "2024-01", 100)
	mar := f.reading(f.account, "2024-03", 900)
	if mar.PreviousReading != 100 {
		t.Errorf("march previous = %d, want 100", mar.PreviousReading)
	}

	feb := f.reading(f.account, "2024-02", 400)
	if feb.PreviousReading != 100 || feb.Units() != 300 {
		t.Errorf("late february reading previous %d units %d, want 100 and 300", feb.PreviousReading, feb.Units())
	}

	other := f.newAccount(f.customer, "A-1002", "LT-I")
	f.reading(other, "2024-05", 700)
	first := f.reading(other, "2024-04", 650)
	if first.PreviousReading != 0 {
		t.Errorf("reading before the only later one: previous = %d, want 0", first.PreviousReading)
	}
}

func TestRecordReadingValidation(t *testing.T) {
	f := newFixture(t)
	negative := int64(-3)

	_, err := f.eng.RecordReading(f.ctx, billing.ReadingInput{
		BillingMonth:   "March",
		CurrentReading: -1,
		UnitsConsumed:  &negative,
	}, "meter-reader")
	if !billing.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	for _, field := range []string{"account_id", "billing_month", "current_reading", "units_consumed"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}

	_, err = f.eng.RecordReading(f.ctx, billing.ReadingInput{
		AccountID:    id.NewAccountID(),
		BillingMonth: "2024-01",
	}, "meter-reader")
	if !billing.IsNotFound(err) {
		t.Errorf("unknown account: %v", err)
	}
}
