package charge_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

func rule(name string, typ charge.Type, value string, applicable ...string) *charge.Rule {
	r := &charge.Rule{
		Name:         name,
		Type:         typ,
		Value:        decimal.RequireFromString(value),
		ApplicableTo: applicable,
		Active:       true,
	}
	r.Normalize()
	return r
}

func TestCategoryFromName(t *testing.T) {
	tests := []struct {
		name     string
		category charge.Category
		mode     payment.Mode
	}{
		{"Electricity Duty", charge.ElectricityDuty, ""},
		{"electricity duty", charge.ElectricityDuty, ""},
		{"Fuel Adjustment Charge", charge.FuelAdjustment, ""},
		{"Wheeling Charges", charge.Wheeling, ""},
		{"Convenience Fee UPI", charge.ConvenienceFee, payment.ModeUPI},
		{"Convenience Fee ONLINE", charge.ConvenienceFee, payment.ModeOnline},
		{"Green Cess", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, mode := charge.CategoryFromName(tt.name)
			if category != tt.category || mode != tt.mode {
				t.Errorf("got (%q, %q), want (%q, %q)", category, mode, tt.category, tt.mode)
			}
		})
	}
}

func TestTotal(t *testing.T) {
	base := types.INR(105000)
	rules := []*charge.Rule{
		rule("Electricity Duty", charge.TypePercentage, "16"),
		rule("Electricity Duty", charge.TypeFixed, "10", "LT-I"),
		rule("Electricity Duty", charge.TypeFixed, "99", "HT-II"),
		rule("Wheeling Charges", charge.TypeFixed, "12.5"),
		rule("Convenience Fee ONLINE", charge.TypePercentage, "2"),
	}
	inactive := rule("Electricity Duty", charge.TypeFixed, "1000")
	inactive.Active = false
	rules = append(rules, inactive)

	tests := []struct {
		name     string
		category charge.Category
		want     types.Money
	}{
		{"duty sums matching rules", charge.ElectricityDuty, types.INR(16800 + 1000)},
		{"wheeling fixed", charge.Wheeling, types.INR(1250)},
		{"no fuel rules", charge.FuelAdjustment, types.INR(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := charge.Total(rules, tt.category, "LT-I", base)
			if !got.Equal(tt.want) {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvenienceFeeFor(t *testing.T) {
	rules := []*charge.Rule{
		rule("Electricity Duty", charge.TypePercentage, "16"),
		rule("Convenience Fee ONLINE", charge.TypePercentage, "1.5"),
		rule("Convenience Fee UPI", charge.TypeFixed, "5", "LT-I"),
	}

	tests := []struct {
		name     string
		mode     payment.Mode
		category string
		want     types.Money
	}{
		{"percentage", payment.ModeOnline, "LT-I", types.INR(750)},
		{"fixed", payment.ModeUPI, "LT-I", types.INR(500)},
		{"not applicable to category", payment.ModeUPI, "LT-II", types.INR(0)},
		{"no rule for mode", payment.ModeCash, "LT-I", types.INR(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := charge.ConvenienceFeeFor(rules, tt.mode, tt.category, types.INR(50000))
			if !got.Equal(tt.want) {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplicableToRoundTrip(t *testing.T) {
	list := charge.ParseApplicableTo(" LT-I, LT-II ,")
	if len(list) != 2 || list[0] != "LT-I" || list[1] != "LT-II" {
		t.Errorf("unexpected list %v", list)
	}
	if got := charge.FormatApplicableTo(list); got != "LT-I,LT-II" {
		t.Errorf("Got %q", got)
	}
	if got := charge.ParseApplicableTo(""); len(got) != 1 || got[0] != charge.ApplicableToAll {
		t.Errorf("empty list should mean ALL, got %v", got)
	}
}
