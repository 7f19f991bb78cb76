package rating_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/rating"
	"github.com/xraph/billing/subsidy"
	"github.com/xraph/billing/tariff"
	"github.com/xraph/billing/types"
)

func bounded(n int, lo, hi int64, rate string) tariff.Slab {
	return tariff.Slab{Number: n, MinUnits: lo, MaxUnits: &hi, RatePerUnit: decimal.RequireFromString(rate)}
}

func open(n int, lo int64, rate string) tariff.Slab {
	return tariff.Slab{Number: n, MinUnits: lo, RatePerUnit: decimal.RequireFromString(rate)}
}

func ltI() []tariff.Slab {
	return []tariff.Slab{
		bounded(1, 1, 100, "3.50"),
		bounded(2, 101, 300, "5.20"),
		open(3, 301, "7.00"),
	}
}

func TestEnergy(t *testing.T) {
	tests := []struct {
		name  string
		slabs []tariff.Slab
		units int64
		want  int64
	}{
		{"worked example", ltI(), 250, 113000},
		{"zero units", ltI(), 0, 0},
		{"first slab boundary", ltI(), 100, 35000},
		{"into top slab", ltI(), 450, 35000 + 104000 + 105000},
		{"fractional rate rounds once", []tariff.Slab{open(1, 1, "3.3333")}, 7, 2333},
		{
			"units beyond last bounded slab are dropped",
			[]tariff.Slab{bounded(1, 1, 100, "2.00")},
			150,
			20000,
		},
		{
			"slabs out of order are sorted",
			[]tariff.Slab{open(3, 301, "7.00"), bounded(2, 101, 300, "5.20"), bounded(1, 1, 100, "3.50")},
			250,
			113000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := rating.Energy(tt.slabs, tt.units, "inr")
			if !got.Equal(types.INR(tt.want)) {
				t.Errorf("Got %v, want %v", got, types.INR(tt.want))
			}
		})
	}
}

func TestEnergySlabUnitsSumToConsumption(t *testing.T) {
	for _, units := range []int64{1, 99, 100, 101, 299, 300, 301, 1000, 123457} {
		_, lines := rating.Energy(ltI(), units, "inr")

		var sum int64
		for _, l := range lines {
			sum += l.Units
		}
		if sum != units {
			t.Errorf("units %d: slab units sum to %d", units, sum)
		}
	}
}

func TestCompute(t *testing.T) {
	trf := &tariff.Tariff{
		Code:           "LT-I",
		ConnectionType: account.Residential,
		FixedCharge:    types.INR(10000),
		MeterRent:      types.INR(2000),
		Active:         true,
	}
	charges := []*charge.Rule{
		{Name: "Electricity Duty", Type: charge.TypePercentage, Value: decimal.RequireFromString("16"), Active: true},
		{Name: "Fuel Adjustment Charge", Type: charge.TypeFixed, Value: decimal.RequireFromString("25"), Active: true},
		{Name: "Wheeling Charges", Type: charge.TypePercentage, Value: decimal.RequireFromString("1.5"), ApplicableTo: []string{"LT-II"}, Active: true},
		{Name: "Convenience Fee ONLINE", Type: charge.TypeFixed, Value: decimal.RequireFromString("500"), Active: true},
	}
	for _, c := range charges {
		c.Normalize()
	}
	cap50 := int64(50)
	subsidies := []*subsidy.Rule{
		{PerUnitAmount: decimal.RequireFromString("1.25"), MaxUnits: &cap50, Active: true},
		{Percentage: decimal.RequireFromString("10"), MaxBenefit: types.INR(5000), Active: true},
	}

	got := rating.Compute(rating.Input{
		Tariff:         trf,
		Slabs:          ltI(),
		Units:          250,
		TariffCategory: "LT-I",
		Charges:        charges,
		Subsidies:      subsidies,
	})

	// subtotal 1130 + 100 + 20 = 1250; duty 200; fuel 25; wheeling excluded
	// gross 1475; subsidy 62.50 + min(147.50, 50) = 112.50
	checks := []struct {
		field string
		got   types.Money
		want  int64
	}{
		{"energy", got.Energy, 113000},
		{"subtotal", got.Subtotal, 125000},
		{"duty", got.ElectricityDuty, 20000},
		{"other", got.OtherCharges(), 2500},
		{"gross", got.Gross, 147500},
		{"subsidy", got.Subsidy, 11250},
		{"total", got.Total, 136250},
	}
	for _, c := range checks {
		if !c.got.Equal(types.INR(c.want)) {
			t.Errorf("%s: got %v, want %v", c.field, c.got, types.INR(c.want))
		}
	}
}

func TestComputeTotalNeverNegative(t *testing.T) {
	trf := &tariff.Tariff{FixedCharge: types.INR(5000), MeterRent: types.INR(0), Active: true}
	subsidies := []*subsidy.Rule{{FixedAmount: types.INR(100000), Active: true}}

	got := rating.Compute(rating.Input{Tariff: trf, Slabs: ltI(), Units: 10, Subsidies: subsidies})
	if !got.Total.IsZero() {
		t.Errorf("Got %v, want zero", got.Total)
	}
}
