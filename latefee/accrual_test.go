package latefee_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/latefee"
	"github.com/xraph/billing/types"
)

func policy() *latefee.Policy {
	return &latefee.Policy{
		ID:               id.NewLateFeePolicyID(),
		ConnectionType:   account.Residential,
		StandardDueDays:  15,
		GracePeriodDays:  3,
		DailyRatePercent: decimal.RequireFromString("1"),
		FlatFee:          types.INR(0),
		MaxLateFee:       types.INR(0),
		EffectiveFrom:    types.Date(2023, time.January, 1),
		Active:           true,
	}
}

func unpaid(due time.Time, balance int64) *bill.Bill {
	return &bill.Bill{DueDate: due, Balance: types.INR(balance), Status: bill.StatusUnpaid}
}

func TestAccrueWorkedExample(t *testing.T) {
	bills := []*bill.Bill{unpaid(types.Date(2024, time.January, 15), 100000)}
	got := latefee.Accrue(policy(), bills, types.INR(100000), types.INR(5000), types.Date(2024, time.February, 1))

	if !got.Equal(types.INR(14000)) {
		t.Errorf("Got %v, want %v", got, types.INR(14000))
	}
}

func TestAccrue(t *testing.T) {
	asOf := types.Date(2024, time.February, 1)
	due := types.Date(2024, time.January, 15)

	tests := []struct {
		name   string
		mutate func(p *latefee.Policy)
		bills  []*bill.Bill
		want   int64
	}{
		{
			name:  "within grace",
			bills: []*bill.Bill{unpaid(types.Date(2024, time.January, 30), 100000)},
			want:  0,
		},
		{
			name:  "late start equals as of",
			bills: []*bill.Bill{unpaid(types.Date(2024, time.January, 29), 100000)},
			want:  0,
		},
		{
			name:   "capped",
			mutate: func(p *latefee.Policy) { p.MaxLateFee = types.INR(10000) },
			bills:  []*bill.Bill{unpaid(due, 100000)},
			want:   10000,
		},
		{
			name:   "flat fee added",
			mutate: func(p *latefee.Policy) { p.FlatFee = types.INR(2500) },
			bills:  []*bill.Bill{unpaid(due, 100000)},
			want:   16500,
		},
		{
			name: "additive across bills",
			bills: []*bill.Bill{
				unpaid(due, 100000),
				unpaid(types.Date(2023, time.December, 15), 50000),
			},
			// 140.00 + 5.00 × 45 days
			want: 14000 + 22500,
		},
		{
			name: "paid and overdue bills do not accrue",
			bills: []*bill.Bill{
				{DueDate: due, Balance: types.INR(100000), Status: bill.StatusOverdue},
				{DueDate: due, Balance: types.INR(0), Status: bill.StatusPaid},
			},
			want: 0,
		},
		{
			name:   "daily component rounds to four places first",
			mutate: func(p *latefee.Policy) { p.DailyRatePercent = decimal.RequireFromString("0.0333") },
			// 333.33 × 0.0333% = 0.11099889 → 0.1110 × 14 = 1.554 → 1.55
			bills: []*bill.Bill{unpaid(due, 33333)},
			want:  155,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := policy()
			if tt.mutate != nil {
				tt.mutate(p)
			}
			got := latefee.Accrue(p, tt.bills, types.INR(1), types.INR(5000), asOf)
			if !got.Equal(types.INR(tt.want)) {
				t.Errorf("Got %v, want %v", got, types.INR(tt.want))
			}
		})
	}
}

func TestAccrueWithoutPolicy(t *testing.T) {
	fallback := types.INR(5000)
	asOf := types.Date(2024, time.February, 1)

	if got := latefee.Accrue(nil, nil, types.INR(1), fallback, asOf); !got.Equal(fallback) {
		t.Errorf("Got %v, want %v", got, fallback)
	}
	if got := latefee.Accrue(nil, nil, types.INR(0), fallback, asOf); !got.IsZero() {
		t.Errorf("Got %v, want zero", got)
	}
}

func TestSelect(t *testing.T) {
	day := types.Date(2024, time.June, 1)
	end := types.Date(2024, time.March, 31)

	older := policy()
	older.EffectiveFrom = types.Date(2023, time.January, 1)
	newer := policy()
	newer.EffectiveFrom = types.Date(2024, time.January, 1)
	expired := policy()
	expired.EffectiveFrom = types.Date(2024, time.February, 1)
	expired.EffectiveTo = &end
	inactive := policy()
	inactive.EffectiveFrom = types.Date(2024, time.May, 1)
	inactive.Active = false

	got := latefee.Select([]*latefee.Policy{older, expired, newer, inactive}, day)
	if got != newer {
		t.Errorf("expected the latest effective active policy")
	}

	time.Sleep(2 * time.Millisecond)
	twin := policy()
	twin.EffectiveFrom = newer.EffectiveFrom
	got = latefee.Select([]*latefee.Policy{twin, newer}, day)
	if got != twin {
		t.Errorf("expected tie to go to the greater ID")
	}

	if latefee.Select([]*latefee.Policy{inactive}, day) != nil {
		t.Error("expected no policy")
	}
}

func TestDueDate(t *testing.T) {
	billDate := types.Date(2024, time.January, 31)
	if got := latefee.DueDate(billDate, nil, 15); !got.Equal(types.Date(2024, time.February, 15)) {
		t.Errorf("Got %v", got)
	}

	p := policy()
	p.StandardDueDays = 10
	if got := latefee.DueDate(billDate, p, 15); !got.Equal(types.Date(2024, time.February, 10)) {
		t.Errorf("Got %v", got)
	}
}
