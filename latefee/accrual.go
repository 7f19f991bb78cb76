package latefee

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/types"
)

var hundred = decimal.NewFromInt(100)

// Accrue returns the late fee owed as of asOf across the account's bills.
//
// Without a policy the fallback fee is charged once when previousDue is
// positive. With a policy every UNPAID or PARTIALLY_PAID bill past its
// due date plus grace contributes independently.
func Accrue(p *Policy, bills []*bill.Bill, previousDue, fallback types.Money, asOf time.Time) types.Money {
	currency := previousDue.Currency
	if p == nil {
		if previousDue.IsPositive() {
			return fallback
		}
		return types.Zero(currency)
	}

	total := decimal.Zero
	for _, b := range bills {
		if !b.Accruing() {
			continue
		}
		total = total.Add(p.feeFor(b, asOf))
	}

	return types.FromDecimal(total, currency)
}

// ForBill returns the fee a single bill has accrued as of asOf.
func (p *Policy) ForBill(b *bill.Bill, asOf time.Time) types.Money {
	return types.FromDecimal(p.feeFor(b, asOf), b.Balance.Currency)
}

func (p *Policy) feeFor(b *bill.Bill, asOf time.Time) decimal.Decimal {
	lateStart := types.Day(b.DueDate).AddDate(0, 0, p.GracePeriodDays)
	overdueDays := types.DaysBetween(lateStart, asOf)
	if overdueDays <= 0 {
		return decimal.Zero
	}

	daily := types.Round(b.Balance.Decimal().Mul(p.DailyRatePercent).Div(hundred), 4)
	fee := daily.Mul(decimal.NewFromInt(int64(overdueDays))).Add(p.FlatFee.Decimal())
	if p.MaxLateFee.IsPositive() && fee.GreaterThan(p.MaxLateFee.Decimal()) {
		fee = p.MaxLateFee.Decimal()
	}

	return types.Round(fee, 2)
}
