package charge

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

type Type string

const (
	TypePercentage Type = "PERCENTAGE"
	TypeFixed      Type = "FIXED"
)

// Category says where a rule is charged. Bill categories are composed at
// generation time; convenience fees only at payment time.
type Category string

const (
	ElectricityDuty Category = "ELECTRICITY_DUTY"
	FuelAdjustment  Category = "FUEL_ADJUSTMENT"
	Wheeling        Category = "WHEELING"
	ConvenienceFee  Category = "CONVENIENCE_FEE"
)

// ApplicableToAll matches every tariff category.
const ApplicableToAll = "ALL"

// Rule is an additional charge. Name is the authored label ("Electricity
// Duty", "Convenience Fee UPI"); Category and Mode are the keys the engine
// dispatches on.
type Rule struct {
	types.Entity
	ID           id.ChargeID     `json:"id"`
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	Mode         payment.Mode    `json:"mode,omitempty"`
	Type         Type            `json:"type"`
	Value        decimal.Decimal `json:"value"`
	ApplicableTo []string        `json:"applicable_to"`
	Active       bool            `json:"active"`
}

var namedCategories = map[string]Category{
	"electricity duty":       ElectricityDuty,
	"fuel adjustment charge": FuelAdjustment,
	"wheeling charges":       Wheeling,
}

// CategoryFromName maps an authored rule name onto its category and, for
// convenience fees, the payment mode. Unknown names yield an empty
// category.
func CategoryFromName(name string) (Category, payment.Mode) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if rest, ok := strings.CutPrefix(normalized, "convenience fee"); ok {
		mode, _ := payment.ParseMode(rest)
		return ConvenienceFee, mode
	}

	return namedCategories[normalized], ""
}

// Normalize fills Category, Mode and ApplicableTo from the authored fields
// when they were left empty.
func (r *Rule) Normalize() {
	if r.Category == "" {
		r.Category, r.Mode = CategoryFromName(r.Name)
	}
	if len(r.ApplicableTo) == 0 {
		r.ApplicableTo = []string{ApplicableToAll}
	}
}

// AppliesTo reports whether the rule covers the tariff category.
func (r *Rule) AppliesTo(tariffCategory string) bool {
	return lo.ContainsBy(r.ApplicableTo, func(c string) bool {
		c = strings.TrimSpace(c)
		return strings.EqualFold(c, ApplicableToAll) || strings.EqualFold(c, tariffCategory)
	})
}

// Amount evaluates the rule over base. Percentages round half-up to paise;
// fixed values are taken as configured.
func (r *Rule) Amount(base types.Money) types.Money {
	switch r.Type {
	case TypePercentage:
		return base.Percent(r.Value)
	case TypeFixed:
		return types.FromDecimal(r.Value, base.Currency)
	default:
		return types.Zero(base.Currency)
	}
}

// ParseApplicableTo splits a stored comma-separated applicability list.
func ParseApplicableTo(s string) []string {
	parts := lo.FilterMap(strings.Split(s, ","), func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
	if len(parts) == 0 {
		return []string{ApplicableToAll}
	}
	return parts
}

// FormatApplicableTo joins an applicability list for storage.
func FormatApplicableTo(list []string) string {
	if len(list) == 0 {
		return ApplicableToAll
	}
	return strings.Join(list, ",")
}
