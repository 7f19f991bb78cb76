// Package rating prices a consumption against a tariff: progressive slab
// energy charges, additional charges over the subtotal, and subsidies.
// Everything here is a pure function of its inputs.
package rating

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/subsidy"
	"github.com/xraph/billing/tariff"
	"github.com/xraph/billing/types"
)

// SlabCharge is the share of consumption billed in one slab.
type SlabCharge struct {
	Number int             `json:"slab_number"`
	Units  int64           `json:"units"`
	Rate   decimal.Decimal `json:"rate_per_unit"`
	Amount types.Money     `json:"amount"`
}

// Breakdown itemizes a bill's charges before previous due and late fees.
type Breakdown struct {
	Units           int64        `json:"units"`
	Slabs           []SlabCharge `json:"slabs"`
	Energy          types.Money  `json:"energy_charge"`
	Fixed           types.Money  `json:"fixed_charge"`
	MeterRent       types.Money  `json:"meter_rent"`
	Subtotal        types.Money  `json:"subtotal"`
	ElectricityDuty types.Money  `json:"electricity_duty"`
	FuelAdjustment  types.Money  `json:"fuel_adjustment"`
	Wheeling        types.Money  `json:"wheeling"`
	Gross           types.Money  `json:"gross"`
	Subsidy         types.Money  `json:"subsidy"`
	Total           types.Money  `json:"total"`
}

// OtherCharges is what a bill records besides duty: fuel adjustment plus
// wheeling.
func (b Breakdown) OtherCharges() types.Money {
	return b.FuelAdjustment.Add(b.Wheeling)
}

// Input gathers everything Compute needs. Charges may contain rules of any
// category; Subsidies must already be filtered to the bill's tariff code,
// connection type and date.
type Input struct {
	Tariff         *tariff.Tariff
	Slabs          []tariff.Slab
	Units          int64
	TariffCategory string
	Charges        []*charge.Rule
	Subsidies      []*subsidy.Rule
}

// Energy walks the slabs in slab-number order and prices units. The sum is
// rounded once, half-up to paise. Units left after the last slab are not
// billed.
func Energy(slabs []tariff.Slab, units int64, currency string) (types.Money, []SlabCharge) {
	ordered := slices.Clone(slabs)
	tariff.SortSlabs(ordered)

	total := decimal.Zero
	remaining := units
	var lines []SlabCharge

	for _, s := range ordered {
		if remaining <= 0 {
			break
		}

		inSlab := remaining
		if width, bounded := s.Width(); bounded && width < inSlab {
			inSlab = max(width, 0)
		}
		if inSlab == 0 {
			continue
		}

		amount := s.RatePerUnit.Mul(decimal.NewFromInt(inSlab))
		total = total.Add(amount)
		remaining -= inSlab

		lines = append(lines, SlabCharge{
			Number: s.Number,
			Units:  inSlab,
			Rate:   s.RatePerUnit,
			Amount: types.FromDecimal(amount, currency),
		})
	}

	return types.FromDecimal(total, currency), lines
}

// Subsidy sums each rule's individually capped benefit.
func Subsidy(rules []*subsidy.Rule, units int64, gross types.Money) types.Money {
	total := types.Zero(gross.Currency)
	for _, r := range rules {
		total = total.Add(r.Benefit(units, gross))
	}
	return total
}

// Compute prices a consumption end to end. The total never goes below zero.
func Compute(in Input) Breakdown {
	currency := in.Tariff.FixedCharge.Currency
	energy, lines := Energy(in.Slabs, in.Units, currency)

	b := Breakdown{
		Units:     in.Units,
		Slabs:     lines,
		Energy:    energy,
		Fixed:     in.Tariff.FixedCharge,
		MeterRent: in.Tariff.MeterRent,
	}
	b.Subtotal = types.Sum(b.Energy, b.Fixed, b.MeterRent)

	b.ElectricityDuty = charge.Total(in.Charges, charge.ElectricityDuty, in.TariffCategory, b.Subtotal)
	b.FuelAdjustment = charge.Total(in.Charges, charge.FuelAdjustment, in.TariffCategory, b.Subtotal)
	b.Wheeling = charge.Total(in.Charges, charge.Wheeling, in.TariffCategory, b.Subtotal)
	b.Gross = types.Sum(b.Subtotal, b.ElectricityDuty, b.FuelAdjustment, b.Wheeling)

	b.Subsidy = Subsidy(in.Subsidies, in.Units, b.Gross)
	b.Total = b.Gross.Subtract(b.Subsidy).ClampZero()

	return b
}
