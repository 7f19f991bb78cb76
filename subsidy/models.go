package subsidy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

// Rule is a deduction from a bill's gross amount. A zero MaxBenefit means
// the benefit is uncapped; a nil MaxUnits means every consumed unit counts.
type Rule struct {
	types.Entity
	ID             id.SubsidyID           `json:"id"`
	Name           string                 `json:"name"`
	TariffCode     string                 `json:"tariff_code"`
	ConnectionType account.ConnectionType `json:"connection_type"`
	MaxUnits       *int64                 `json:"max_units,omitempty"`
	PerUnitAmount  decimal.Decimal        `json:"per_unit_amount"`
	Percentage     decimal.Decimal        `json:"percentage"`
	FixedAmount    types.Money            `json:"fixed_amount"`
	MaxBenefit     types.Money            `json:"max_benefit"`
	EffectiveFrom  time.Time              `json:"effective_from"`
	EffectiveTo    *time.Time             `json:"effective_to,omitempty"`
	Active         bool                   `json:"active"`
}

// Matches reports whether the rule applies to a bill of the given tariff
// code and connection type on day.
func (r *Rule) Matches(tariffCode string, conn account.ConnectionType, day time.Time) bool {
	return r.Active &&
		r.TariffCode == tariffCode &&
		r.ConnectionType == conn &&
		types.Within(day, r.EffectiveFrom, r.EffectiveTo)
}

// Benefit computes this rule's deduction for a bill with the given units
// and gross amount, clamped to MaxBenefit and rounded half-up to paise.
func (r *Rule) Benefit(units int64, gross types.Money) types.Money {
	if r.MaxUnits != nil && *r.MaxUnits < units {
		units = *r.MaxUnits
	}

	benefit := decimal.Zero
	if r.PerUnitAmount.IsPositive() {
		benefit = benefit.Add(r.PerUnitAmount.Mul(decimal.NewFromInt(units)))
	}
	if r.Percentage.IsPositive() {
		benefit = benefit.Add(gross.Percent(r.Percentage).Decimal())
	}
	if r.FixedAmount.IsPositive() {
		benefit = benefit.Add(r.FixedAmount.Decimal())
	}
	if r.MaxBenefit.IsPositive() && benefit.GreaterThan(r.MaxBenefit.Decimal()) {
		benefit = r.MaxBenefit.Decimal()
	}

	return types.FromDecimal(benefit, gross.Currency)
}
