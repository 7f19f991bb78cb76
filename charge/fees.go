package charge

import (
	"github.com/samber/lo"

	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

// Total sums every active rule of category that applies to tariffCategory,
// each evaluated over base.
func Total(rules []*Rule, category Category, tariffCategory string, base types.Money) types.Money {
	total := types.Zero(base.Currency)
	for _, r := range rules {
		if !r.Active || r.Category != category || !r.AppliesTo(tariffCategory) {
			continue
		}
		total = total.Add(r.Amount(base))
	}
	return total
}

// ConvenienceFeeFor returns the fee for paying amount with mode. The first
// matching rule by ID wins; no rule means no fee.
func ConvenienceFeeFor(rules []*Rule, mode payment.Mode, tariffCategory string, amount types.Money) types.Money {
	r, ok := lo.Find(rules, func(r *Rule) bool {
		return r.Active && r.Category == ConvenienceFee && r.Mode == mode && r.AppliesTo(tariffCategory)
	})
	if !ok {
		return types.Zero(amount.Currency)
	}
	return r.Amount(amount)
}
