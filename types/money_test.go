package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMoneyDisplay(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		display string
	}{
		{"INR", INR(113000), "₹1130.00"},
		{"INR paise", INR(5), "₹0.05"},
		{"USD", USD(4900), "$49.00"},
		{"Zero default", Zero(""), "₹0.00"},
		{"Negative", INR(-2550), "₹-25.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.String(); got != tt.display {
				t.Errorf("Got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestFromDecimalRoundsHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1130", 113000},
		{"0.005", 1},
		{"0.004", 0},
		{"12.345", 1235},
		{"12.3449", 1234},
		{"-0.005", -1},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := FromDecimal(decimal.RequireFromString(tt.in), "inr")
			if got.Amount != tt.want {
				t.Errorf("Got %d, want %d", got.Amount, tt.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	got := INR(105000).Percent(decimal.RequireFromString("16"))
	if !got.Equal(INR(16800)) {
		t.Errorf("Got %v, want %v", got, INR(16800))
	}

	got = INR(333).Percent(decimal.RequireFromString("50"))
	if !got.Equal(INR(167)) {
		t.Errorf("Got %v, want %v", got, INR(167))
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return INR(100).Add(INR(200)) }, INR(300)},
		{"Subtract", func() Money { return INR(500).Subtract(INR(200)) }, INR(300)},
		{"Multiply", func() Money { return INR(100).Multiply(3) }, INR(300)},
		{"ClampZero negative", func() Money { return INR(-100).ClampZero() }, INR(0)},
		{"ClampZero positive", func() Money { return INR(100).ClampZero() }, INR(100)},
		{"Min", func() Money { return INR(150000).Min(INR(120000)) }, INR(120000)},
		{"Sum", func() Money { return Sum(INR(1), INR(2), INR(3)) }, INR(6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op(); !got.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()
	_ = INR(100).Add(USD(100))
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(INR(50000))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if raw["display"] != "₹500.00" {
		t.Errorf("Got display %v, want ₹500.00", raw["display"])
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal money: %v", err)
	}
	if !back.Equal(INR(50000)) {
		t.Errorf("Got %v, want %v", back, INR(50000))
	}
}

func TestDaysBetween(t *testing.T) {
	a := Date(2024, time.January, 18)
	b := time.Date(2024, time.February, 1, 17, 30, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 14 {
		t.Errorf("Got %d, want 14", got)
	}
	if got := DaysBetween(b, a); got != -14 {
		t.Errorf("Got %d, want -14", got)
	}
}

func TestWithin(t *testing.T) {
	from := Date(2024, time.January, 1)
	to := Date(2024, time.March, 31)

	tests := []struct {
		name string
		day  time.Time
		to   *time.Time
		want bool
	}{
		{"before range", Date(2023, time.December, 31), &to, false},
		{"first day", from, &to, true},
		{"last day", to, &to, true},
		{"after range", Date(2024, time.April, 1), &to, false},
		{"open ended", Date(2030, time.April, 1), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Within(tt.day, from, tt.to); got != tt.want {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMonth(t *testing.T) {
	if _, err := ParseMonth("2024-01"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "2024-1", "2024/01", "Jan 2024"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
